package web

// pageHTML is the single page of the UI: the drop zone when there is no
// session, the result cards after a split, and at most one notification.
const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Quad Split</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; }
#drop-zone { border: 2px dashed #888; border-radius: 12px; padding: 3rem; text-align: center; cursor: pointer; }
#drop-zone.drag-over { border-color: #2a6; background: #eef8f1; }
#output-grid { display: grid; grid-template-columns: repeat(2, 1fr); gap: 1rem; }
.result-card { border: 1px solid #ddd; border-radius: 8px; overflow: hidden; }
.result-card img { width: 100%; display: block; }
.result-info { display: flex; justify-content: space-between; align-items: center; padding: .5rem .75rem; }
#original img { max-width: 100%; max-height: 360px; display: block; margin: 0 auto; }
.toast { position: fixed; bottom: 1rem; right: 1rem; background: #333; color: #fff; padding: .75rem 1rem; border-radius: 6px; }
</style>
</head>
<body>
<h1>Split &amp; Optimize</h1>
{{if .Success}}
<section id="results">
<figure id="original">
<img src="{{.Original}}" alt="Original">
<figcaption>{{.Source}}</figcaption>
</figure>
<div id="output-grid">
{{range .Tiles}}
<div class="result-card">
<img src="{{.URL}}" alt="{{.Name}}">
<div class="result-info">
<div class="file-info"><strong>Photo {{.Number}}</strong> <span>{{.Size}}</span> <small>q {{.Quality}}</small></div>
<a href="{{.URL}}" download="{{.Name}}">Download</a>
</div>
</div>
{{end}}
</div>
<p>
<a href="{{.Archive}}" download>Download all</a>
</p>
<form method="post" action="{{.ResetURL}}"><button type="submit" id="reset-btn">Start over</button></form>
</section>
{{else}}
<form id="upload" method="post" action="/split" enctype="multipart/form-data">
<label id="drop-zone">
<p>Drop an image here or click to choose one.</p>
<input id="file-input" type="file" name="image" accept="image/*" hidden>
</label>
<button type="submit" id="process-btn">Split &amp; Optimize</button>
</form>
<script>
(function() {
  var zone = document.getElementById('drop-zone');
  var input = document.getElementById('file-input');
  var form = document.getElementById('upload');
  zone.addEventListener('dragover', function(e) { e.preventDefault(); zone.classList.add('drag-over'); });
  zone.addEventListener('dragleave', function() { zone.classList.remove('drag-over'); });
  zone.addEventListener('drop', function(e) {
    e.preventDefault();
    zone.classList.remove('drag-over');
    if (e.dataTransfer.files.length) {
      input.files = e.dataTransfer.files;
      form.submit();
    }
  });
  input.addEventListener('change', function() { if (input.files.length) form.submit(); });
  form.addEventListener('submit', function() {
    var btn = document.getElementById('process-btn');
    btn.disabled = true;
    btn.textContent = 'Processing...';
  });
})();
</script>
{{end}}
{{with .Notice}}<div class="toast" id="toast" role="status">{{.}}</div>
<script>setTimeout(function() { document.getElementById('toast').hidden = true; }, 3000);</script>{{end}}
</body>
</html>
`
