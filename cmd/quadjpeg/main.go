// Command quadjpeg splits an image into four quadrants and writes each one as
// a JPEG of at most 1 MiB. It can also serve the upload page that does the
// same in a browser.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/dlecorfec/quadjpeg"
	"github.com/dlecorfec/quadjpeg/internal/web"
)

func main() {
	var in string
	var out string
	var hostPort string
	var progressive bool
	var verbose bool
	var maxUpload int64
	var maxPixels int64
	var maxSessions int
	flag.StringVar(&in, "i", "", "Input image file path")
	flag.StringVar(&out, "o", ".", "Output directory for the four JPEG files")
	flag.BoolVar(&progressive, "progressive", false, "Write progressive JPEGs")
	flag.StringVar(&hostPort, "http", "", "Host and port for the upload page")
	flag.Int64Var(&maxUpload, "max-upload", 32<<20, "Largest accepted upload in bytes")
	flag.Int64Var(&maxPixels, "max-pixels", quadjpeg.DefaultMaxPixels, "Largest accepted image in pixels")
	flag.IntVar(&maxSessions, "max-sessions", 16, "Number of split results kept for download")
	flag.BoolVar(&verbose, "v", false, "Log every encoding attempt")
	flag.Parse()

	if in == "" && hostPort == "" {
		fmt.Fprintf(os.Stderr, "an input file or an http address must be specified\n")
		os.Exit(1)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	if in != "" {
		enc := &quadjpeg.Encoder{Progressive: progressive}
		if verbose {
			enc.Logger = logger
		}
		if err := split(in, out, enc, maxPixels); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
	}

	if hostPort != "" {
		srv := &http.Server{
			Addr: hostPort,
			Handler: web.New(web.Config{
				MaxUploadBytes: maxUpload,
				MaxPixels:      maxPixels,
				MaxSessions:    maxSessions,
				Progressive:    progressive,
				Logger:         logger,
				Verbose:        verbose,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		fmt.Printf("Serving on http://%s/\n", hostPort)
		if err := srv.ListenAndServe(); err != nil {
			fmt.Fprintf(os.Stderr, "cant start http server on %s: %s\n", hostPort, err)
			os.Exit(1)
		}
	}
}

func split(in, out string, enc *quadjpeg.Encoder, maxPixels int64) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("cant open input %s: %w", in, err)
	}
	img, _, err := quadjpeg.DecodeLimit(bytes.NewReader(data), contentType(in, data), maxPixels)
	if err != nil {
		return fmt.Errorf("cant decode input %s: %w", in, err)
	}

	sess := quadjpeg.NewSession(img, enc)
	defer sess.Reset()
	results, err := sess.Process()
	if err != nil {
		return fmt.Errorf("cant split %s: %w", in, err)
	}

	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("cant create output directory %s: %w", out, err)
	}
	for _, res := range results {
		path := filepath.Join(out, res.Label.Filename())
		if err := os.WriteFile(path, res.Data, 0o644); err != nil {
			return fmt.Errorf("cant write output %s: %w", path, err)
		}
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		return printTable(out, results)
	}
	return printJSON(out, results)
}

// contentType sniffs the file contents, falling back to the extension when
// the bytes are not recognised.
func contentType(name string, data []byte) string {
	ct := http.DetectContentType(data)
	if ct == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
			return byExt
		}
	}
	return ct
}

func printTable(dir string, results []quadjpeg.Result) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "file\tbytes\tMB\tquality\tattempts\t")
	for _, res := range results {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%s\t%d\t\n",
			filepath.Join(dir, res.Label.Filename()), res.Len(), res.SizeMB(), res.Quality, len(res.Attempts))
	}
	return tw.Flush()
}

type record struct {
	File     string  `json:"file"`
	Bytes    int     `json:"bytes"`
	SizeMB   float64 `json:"size_mb"`
	Quality  float64 `json:"quality"`
	Attempts int     `json:"attempts"`
}

func printJSON(dir string, results []quadjpeg.Result) error {
	enc := json.NewEncoder(os.Stdout)
	for _, res := range results {
		err := enc.Encode(record{
			File:     filepath.Join(dir, res.Label.Filename()),
			Bytes:    res.Len(),
			SizeMB:   res.SizeMB(),
			Quality:  res.Quality.Float(),
			Attempts: len(res.Attempts),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
