package models

import "time"

// Submission is the metadata of a change set under review (a pull request,
// or a synthetic one for local files).
type Submission struct {
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	HeadBranch string    `json:"head_branch"`
	BaseBranch string    `json:"base_branch"`
	HeadSHA    string    `json:"head_sha,omitempty"`
	State      string    `json:"state"`
	URL        string    `json:"url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FileStatus is the change status of a file in a submission.
type FileStatus string

const (
	FileStatusAdded    FileStatus = "added"
	FileStatusModified FileStatus = "modified"
	FileStatusRemoved  FileStatus = "removed"
	FileStatusRenamed  FileStatus = "renamed"
)

// FileData is one changed file with its full text.
type FileData struct {
	Filename     string     `json:"filename"`
	Status       FileStatus `json:"status"`
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	Changes      int        `json:"changes"`
	ChangedLines []int      `json:"changed_lines,omitempty"`
	Patch        string     `json:"-"`
	Content      string     `json:"-"`
}

// IsChanged reports whether line (1-based) was added by the submission.
// Files without patch information count every line as changed.
func (f FileData) IsChanged(line int) bool {
	if len(f.ChangedLines) == 0 {
		return true
	}
	for _, l := range f.ChangedLines {
		if l == line {
			return true
		}
	}
	return false
}

// Snapshot is the input of a review: written once by detection and
// shared read-only with every analysis task.
type Snapshot struct {
	ReviewID   string     `json:"review_id"`
	Owner      string     `json:"owner"`
	Repo       string     `json:"repo"`
	Submission Submission `json:"submission"`
	Files      []FileData `json:"files"`
}
