package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/noah-isme/backend-manzano/internal/resilience"
)

const maxDocumentBytes = 4 << 20

// Source loads the raw catalog document.
type Source interface {
	Fetch(ctx context.Context) (Document, error)
	Origin() string
}

// HTTPSource fetches the catalog document over HTTP, bypassing intermediate caches.
type HTTPSource struct {
	URL    string
	Client resilience.HTTPClient
}

// Origin implements Source.
func (s HTTPSource) Origin() string { return "http" }

// Fetch implements Source.
func (s HTTPSource) Fetch(ctx context.Context) (Document, error) {
	if strings.TrimSpace(s.URL) == "" {
		return Document{}, fmt.Errorf("catalog: url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	resp, err := s.Client.Do(ctx, req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch catalog: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Document{}, fmt.Errorf("fetch catalog: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return Document{}, fmt.Errorf("read catalog: %w", err)
	}
	return Decode(data)
}

// FileSource reads the catalog document from disk.
type FileSource struct {
	Path string
}

// Origin implements Source.
func (s FileSource) Origin() string { return "file" }

// Fetch implements Source.
func (s FileSource) Fetch(context.Context) (Document, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Document{}, fmt.Errorf("read catalog file: %w", err)
	}
	return Decode(data)
}

// Decode parses a catalog document. Entries without an id are dropped since
// they cannot be added to a cart.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode catalog: %w", err)
	}
	kept := doc.Servicios[:0]
	for _, s := range doc.Servicios {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			continue
		}
		kept = append(kept, s)
	}
	doc.Servicios = kept
	if doc.Servicios == nil {
		doc.Servicios = []Servicio{}
	}
	return doc, nil
}
