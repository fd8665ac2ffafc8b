package web

import (
	"fmt"
	"image"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dlecorfec/quadjpeg"
)

// Languages with their own number formatting on the result page.
var matcher = language.NewMatcher([]language.Tag{
	language.English,
	language.German,
	language.French,
	language.Spanish,
	language.Italian,
	language.Dutch,
	language.Portuguese,
	language.Japanese,
})

// printerFor picks the printer matching the request's Accept-Language.
func printerFor(r *http.Request) *message.Printer {
	tags, _, _ := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	tag, _, _ := matcher.Match(tags...)
	return message.NewPrinter(tag)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func tileURL(id string, name string) string {
	return "/tiles/" + id + "/" + name
}

type tileView struct {
	Number  int
	Name    string
	URL     string
	Size    string
	Quality string
}

type pageView struct {
	Notice    string
	Success   bool
	Source    string
	Original  string
	Tiles     []tileView
	Archive   string
	ResetURL  string
	SessionID string
}

func newPageView(p *message.Printer, id, name string, b image.Rectangle, results []quadjpeg.Result) pageView {
	v := pageView{
		Notice:    msgSuccess,
		Success:   true,
		Source:    p.Sprintf("%s, %d × %d", name, b.Dx(), b.Dy()),
		Original:  tileURL(id, originalName),
		Archive:   tileURL(id, archiveName),
		ResetURL:  "/sessions/" + id + "/reset",
		SessionID: id,
	}
	for i, res := range results {
		v.Tiles = append(v.Tiles, tileView{
			Number:  i + 1,
			Name:    res.Label.Filename(),
			URL:     tileURL(id, res.Label.Filename()),
			Size:    p.Sprintf("%.2f MB", res.SizeMB()),
			Quality: fmt.Sprintf("%d%%", int(res.Quality)),
		})
	}
	return v
}

type tileJSON struct {
	Name     string  `json:"name"`
	URL      string  `json:"url"`
	Bytes    int     `json:"bytes"`
	SizeMB   float64 `json:"size_mb"`
	Quality  float64 `json:"quality"`
	Attempts int     `json:"attempts"`
}

type splitResponse struct {
	Session  string     `json:"session"`
	Original string     `json:"original"`
	Tiles    []tileJSON `json:"tiles"`
	Archive  string     `json:"archive"`
	Reset    string     `json:"reset"`
}

func newSplitResponse(id string, results []quadjpeg.Result) splitResponse {
	resp := splitResponse{
		Session:  id,
		Original: tileURL(id, originalName),
		Archive:  tileURL(id, archiveName),
		Reset:    "/sessions/" + id + "/reset",
	}
	for _, res := range results {
		resp.Tiles = append(resp.Tiles, tileJSON{
			Name:     res.Label.Filename(),
			URL:      tileURL(id, res.Label.Filename()),
			Bytes:    res.Len(),
			SizeMB:   res.SizeMB(),
			Quality:  res.Quality.Float(),
			Attempts: len(res.Attempts),
		})
	}
	return resp
}
