package git

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/joescharf/revu/internal/models"
)

// ghRunner runs a gh command and returns its stdout.
type ghRunner func(ctx context.Context, env []string, args ...string) (string, error)

// GitHubSource reads pull requests through the gh CLI.
type GitHubSource struct {
	token    string
	hostname string
	run      ghRunner
}

// NewGitHubSource returns a source authenticated with token. apiURL selects
// the host; anything other than api.github.com is treated as Enterprise.
func NewGitHubSource(token, apiURL string) *GitHubSource {
	return &GitHubSource{token: token, hostname: hostnameFor(apiURL), run: ghCmd}
}

func hostnameFor(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" || u.Host == "api.github.com" {
		return ""
	}
	return u.Host
}

func ghCmd(ctx context.Context, env []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			if strings.Contains(stderr, "HTTP 404") {
				return "", fmt.Errorf("gh %s: %w", strings.Join(args, " "), ErrNotFound)
			}
			return "", fmt.Errorf("gh %s: %s", strings.Join(args, " "), stderr)
		}
		return "", fmt.Errorf("gh %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (g *GitHubSource) api(ctx context.Context, endpoint string, extra ...string) (string, error) {
	args := []string{"api"}
	if g.hostname != "" {
		args = append(args, "--hostname", g.hostname)
	}
	args = append(args, extra...)
	args = append(args, endpoint)

	var env []string
	if g.token != "" {
		env = append(env, "GH_TOKEN="+g.token)
	}
	return g.run(ctx, env, args...)
}

type pullRaw struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	URL    string `json:"html_url"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
	Head struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (g *GitHubSource) Submission(ctx context.Context, owner, repo string, number int) (models.Submission, error) {
	out, err := g.api(ctx, fmt.Sprintf("repos/%s/%s/pulls/%d", owner, repo, number))
	if err != nil {
		return models.Submission{}, err
	}

	var raw pullRaw
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return models.Submission{}, fmt.Errorf("parse pull request: %w", err)
	}
	return models.Submission{
		Number:     raw.Number,
		Title:      raw.Title,
		Author:     raw.User.Login,
		HeadBranch: raw.Head.Ref,
		BaseBranch: raw.Base.Ref,
		HeadSHA:    raw.Head.SHA,
		State:      raw.State,
		URL:        raw.URL,
		CreatedAt:  raw.CreatedAt,
		UpdatedAt:  raw.UpdatedAt,
	}, nil
}

type fileRaw struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
	Patch     string `json:"patch"`
}

// ChangedFiles lists every file of the pull request across all pages.
// Contents are not fetched.
func (g *GitHubSource) ChangedFiles(ctx context.Context, owner, repo string, number int) ([]models.FileData, error) {
	out, err := g.api(ctx, fmt.Sprintf("repos/%s/%s/pulls/%d/files", owner, repo, number), "--paginate", "--jq", ".[]")
	if err != nil {
		return nil, err
	}

	var files []models.FileData
	dec := json.NewDecoder(strings.NewReader(out))
	for {
		var raw fileRaw
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse pull request files: %w", err)
		}
		lines, err := ChangedLines(raw.Patch)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", raw.Filename, err)
		}
		files = append(files, models.FileData{
			Filename:     raw.Filename,
			Status:       models.FileStatus(raw.Status),
			Additions:    raw.Additions,
			Deletions:    raw.Deletions,
			Changes:      raw.Changes,
			ChangedLines: lines,
			Patch:        raw.Patch,
		})
	}
	return files, nil
}

type contentRaw struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

func (g *GitHubSource) FileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	endpoint := fmt.Sprintf("repos/%s/%s/contents/%s", owner, repo, url.PathEscape(path))
	endpoint = strings.ReplaceAll(endpoint, "%2F", "/")
	if ref != "" {
		endpoint += "?ref=" + url.QueryEscape(ref)
	}
	out, err := g.api(ctx, endpoint)
	if err != nil {
		return "", err
	}

	var raw contentRaw
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return "", fmt.Errorf("parse content of %s: %w", path, err)
	}
	if raw.Type != "" && raw.Type != "file" {
		return "", fmt.Errorf("%s is a %s, not a file", path, raw.Type)
	}
	if raw.Encoding != "base64" {
		return raw.Content, nil
	}
	data, err := base64.StdEncoding.DecodeString(stripNewlines(raw.Content))
	if err != nil {
		return "", fmt.Errorf("decode content of %s: %w", path, err)
	}
	return string(data), nil
}

var newlines = strings.NewReplacer("\n", "", "\r", "")

func stripNewlines(s string) string { return newlines.Replace(s) }
