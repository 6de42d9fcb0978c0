package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Resource names, also used as wrapper keys in wrapped payloads.
const (
	ResourceSpeakers = "speakers"
	ResourceTeams    = "teams"
	ResourceJudges   = "judges"
	ResourceMotions  = "motions"
)

var Resources = []string{ResourceSpeakers, ResourceTeams, ResourceJudges, ResourceMotions}

var defaultHTTPPaths = map[string]string{
	ResourceSpeakers: "/speakers",
	ResourceTeams:    "/teams",
	ResourceJudges:   "/judges",
	ResourceMotions:  "/motions",
}

var defaultFileNames = map[string]string{
	ResourceSpeakers: "speaker_feedback.json",
	ResourceTeams:    "team_summary.json",
	ResourceJudges:   "judge_insights.json",
	ResourceMotions:  "motion_data.json",
}

// Source fetches the raw JSON body of one resource.
type Source interface {
	Fetch(ctx context.Context, resource string) ([]byte, error)
}

// StatusError reports a non-2xx response from the data backend.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: non-2xx status %d %s", e.URL, e.StatusCode, e.Status)
}

type HTTPSource struct {
	BaseURL string
	Paths   map[string]string
	Client  *http.Client
}

func NewHTTPSource(baseURL string, paths map[string]string, client *http.Client) *HTTPSource {
	merged := make(map[string]string, len(defaultHTTPPaths))
	for k, v := range defaultHTTPPaths {
		merged[k] = v
	}
	for k, v := range paths {
		merged[k] = v
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{BaseURL: strings.TrimRight(baseURL, "/"), Paths: merged, Client: client}
}

func (s *HTTPSource) Fetch(ctx context.Context, resource string) ([]byte, error) {
	path, ok := s.Paths[resource]
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", resource)
	}
	target, err := url.JoinPath(s.BaseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build url for %s: %w", resource, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return body, nil
}

// DirSource reads resources from static JSON files in a directory.
type DirSource struct {
	Dir   string
	Files map[string]string
}

func NewDirSource(dir string, files map[string]string) *DirSource {
	merged := make(map[string]string, len(defaultFileNames))
	for k, v := range defaultFileNames {
		merged[k] = v
	}
	for k, v := range files {
		merged[k] = v
	}
	return &DirSource{Dir: dir, Files: merged}
}

func (s *DirSource) Fetch(ctx context.Context, resource string) ([]byte, error) {
	name, ok := s.Files[resource]
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", resource)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.Dir, name))
}
