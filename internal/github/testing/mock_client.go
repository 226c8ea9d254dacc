package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	gh "github.com/google/go-github/v66/github"
)

// Status is a commit status recorded by the mock server.
type Status struct {
	SHA         string
	State       string
	Context     string
	Description string
}

// Comment is an issue comment held by the mock server.
type Comment struct {
	ID     int64
	Body   string
	Author string // login; empty means a human user
}

// AppLogin authors comments created through the mock.
const AppLogin = "checklist-gate[bot]"

func (c Comment) user() *gh.User {
	login, typ := c.Author, "User"
	if login == "" {
		login = "octocat"
	}
	if strings.HasSuffix(login, "[bot]") {
		typ = "Bot"
	}
	return &gh.User{Login: gh.String(login), Type: gh.String(typ)}
}

// MockGitHub is an in-memory GitHub serving the endpoints the gate uses:
//   - GET    /repos/{owner}/{repo}/pulls/{number}
//   - POST   /repos/{owner}/{repo}/statuses/{sha}
//   - POST   /repos/{owner}/{repo}/issues/{number}/labels
//   - DELETE /repos/{owner}/{repo}/issues/{number}/labels/{name}
//   - GET    /repos/{owner}/{repo}/issues/{number}/comments
//   - POST   /repos/{owner}/{repo}/issues/{number}/comments
//   - PATCH  /repos/{owner}/{repo}/issues/comments/{id}
//   - DELETE /repos/{owner}/{repo}/issues/comments/{id}
//     (editing or deleting a comment the app did not author is 403)
//   - POST   /repos/{owner}/{repo}/issues/{number}/reactions
//   - POST   /repos/{owner}/{repo}/issues/comments/{id}/reactions
//   - GET    /repos/{owner}/{repo}/collaborators/{user}/permission
//   - POST   /app/installations/{id}/access_tokens
//
// Every request is recorded as "METHOD path".
type MockGitHub struct {
	mu sync.Mutex

	// PullRequests is served by number. Values are go-github structs.
	PullRequests map[int]*gh.PullRequest
	// PullRequestGets counts pull request fetches.
	PullRequestGets int
	// MergeableAfter makes a PR report mergeable=null for that many fetches.
	MergeableAfter int

	Statuses         []Status
	Labels           map[string]bool
	Comments         []Comment
	IssueReactions   []string
	CommentReactions map[int64][]string
	TokensMinted     int
	Requests         []string
	FailStatusesWith int
	// Permissions maps logins to a permission level; unknown users read.
	Permissions      map[string]string
	PermissionStatus int
	nextCommentID    int64
}

var (
	pullRe            = regexp.MustCompile(`^/repos/[^/]+/[^/]+/pulls/(\d+)$`)
	statusRe          = regexp.MustCompile(`^/repos/[^/]+/[^/]+/statuses/([^/]+)$`)
	labelsRe          = regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/\d+/labels$`)
	labelRe           = regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/\d+/labels/(.+)$`)
	issueCommentsRe   = regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/\d+/comments$`)
	commentRe         = regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/comments/(\d+)$`)
	issueReactionRe   = regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/\d+/reactions$`)
	commentReactionRe = regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/comments/(\d+)/reactions$`)
	permissionRe      = regexp.MustCompile(`^/repos/[^/]+/[^/]+/collaborators/([^/]+)/permission$`)
	accessTokenRe     = regexp.MustCompile(`^/app/installations/\d+/access_tokens$`)
)

// NewMockGitHub starts the mock server. Callers close the returned server.
func NewMockGitHub() (*MockGitHub, *httptest.Server) {
	m := &MockGitHub{
		PullRequests:     map[int]*gh.PullRequest{},
		Labels:           map[string]bool{},
		CommentReactions: map[int64][]string{},
		Permissions:      map[string]string{},
		nextCommentID:    1000,
	}
	return m, httptest.NewServer(m)
}

// NewMockGitHubClient returns a go-github client backed by a fresh mock. The
// returned cleanup function must be called to close the server.
func NewMockGitHubClient() (*gh.Client, *MockGitHub, func()) {
	m, srv := NewMockGitHub()
	return ClientFor(srv), m, srv.Close
}

// ClientFor returns a go-github client pointed at srv.
func ClientFor(srv *httptest.Server) *gh.Client {
	client := gh.NewClient(srv.Client())
	base, _ := url.Parse(srv.URL + "/")
	client.BaseURL = base
	client.UploadURL = base
	return client
}

// SetPullRequest replaces the pull request served for its number.
func (m *MockGitHub) SetPullRequest(pr *gh.PullRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PullRequests[pr.GetNumber()] = pr
}

// Reactions returns the reactions on the issue and on comment id.
func (m *MockGitHub) Reactions(commentID int64) (issue, comment []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue = append(issue, m.IssueReactions...)
	comment = append(comment, m.CommentReactions[commentID]...)
	return issue, comment
}

// StatusesFor returns the recorded states for a context in write order.
func (m *MockGitHub) StatusesFor(context string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.Statuses {
		if s.Context == context {
			out = append(out, s.State)
		}
	}
	return out
}

// Snapshot returns copies of the mutable collections.
func (m *MockGitHub) Snapshot() (statuses []Status, labels []string, comments []Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	statuses = append(statuses, m.Statuses...)
	for l, on := range m.Labels {
		if on {
			labels = append(labels, l)
		}
	}
	comments = append(comments, m.Comments...)
	return statuses, labels, comments
}

func (m *MockGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := r.URL.Path
	m.Requests = append(m.Requests, r.Method+" "+p)

	switch {
	case r.Method == http.MethodGet && pullRe.MatchString(p):
		n, _ := strconv.Atoi(pullRe.FindStringSubmatch(p)[1])
		pr, ok := m.PullRequests[n]
		if !ok {
			writeError(w, http.StatusNotFound)
			return
		}
		m.PullRequestGets++
		out := *pr
		if m.PullRequestGets <= m.MergeableAfter {
			out.Mergeable = nil
		}
		writeJSON(w, http.StatusOK, &out)

	case r.Method == http.MethodPost && statusRe.MatchString(p):
		if m.FailStatusesWith != 0 {
			writeError(w, m.FailStatusesWith)
			return
		}
		var in gh.RepoStatus
		if !decode(w, r, &in) {
			return
		}
		m.Statuses = append(m.Statuses, Status{
			SHA:         statusRe.FindStringSubmatch(p)[1],
			State:       in.GetState(),
			Context:     in.GetContext(),
			Description: in.GetDescription(),
		})
		writeJSON(w, http.StatusCreated, &in)

	case r.Method == http.MethodPost && labelsRe.MatchString(p):
		var names []string
		if !decode(w, r, &names) {
			return
		}
		var out []*gh.Label
		for _, n := range names {
			m.Labels[n] = true
			out = append(out, &gh.Label{Name: gh.String(n)})
		}
		writeJSON(w, http.StatusOK, out)

	case r.Method == http.MethodDelete && labelRe.MatchString(p):
		name, _ := url.PathUnescape(labelRe.FindStringSubmatch(p)[1])
		if !m.Labels[name] {
			writeError(w, http.StatusNotFound)
			return
		}
		delete(m.Labels, name)
		writeJSON(w, http.StatusOK, []*gh.Label{})

	case r.Method == http.MethodGet && issueCommentsRe.MatchString(p):
		out := make([]*gh.IssueComment, 0, len(m.Comments))
		for _, c := range m.Comments {
			out = append(out, &gh.IssueComment{ID: gh.Int64(c.ID), Body: gh.String(c.Body), User: c.user()})
		}
		writeJSON(w, http.StatusOK, out)

	case r.Method == http.MethodPost && issueCommentsRe.MatchString(p):
		var in gh.IssueComment
		if !decode(w, r, &in) {
			return
		}
		m.nextCommentID++
		c := Comment{ID: m.nextCommentID, Body: in.GetBody(), Author: AppLogin}
		m.Comments = append(m.Comments, c)
		writeJSON(w, http.StatusCreated, &gh.IssueComment{ID: gh.Int64(c.ID), Body: in.Body, User: c.user()})

	case r.Method == http.MethodPatch && commentRe.MatchString(p):
		id, _ := strconv.ParseInt(commentRe.FindStringSubmatch(p)[1], 10, 64)
		var in gh.IssueComment
		if !decode(w, r, &in) {
			return
		}
		for i := range m.Comments {
			if m.Comments[i].ID == id {
				if m.Comments[i].Author != AppLogin {
					writeError(w, http.StatusForbidden)
					return
				}
				m.Comments[i].Body = in.GetBody()
				writeJSON(w, http.StatusOK, &gh.IssueComment{ID: gh.Int64(id), Body: in.Body})
				return
			}
		}
		writeError(w, http.StatusNotFound)

	case r.Method == http.MethodDelete && commentRe.MatchString(p):
		id, _ := strconv.ParseInt(commentRe.FindStringSubmatch(p)[1], 10, 64)
		for i := range m.Comments {
			if m.Comments[i].ID == id {
				if m.Comments[i].Author != AppLogin {
					writeError(w, http.StatusForbidden)
					return
				}
				m.Comments = append(m.Comments[:i], m.Comments[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeError(w, http.StatusNotFound)

	case r.Method == http.MethodPost && issueReactionRe.MatchString(p):
		var in struct{ Content string }
		if !decode(w, r, &in) {
			return
		}
		m.IssueReactions = append(m.IssueReactions, in.Content)
		writeJSON(w, http.StatusCreated, &gh.Reaction{Content: gh.String(in.Content)})

	case r.Method == http.MethodPost && commentReactionRe.MatchString(p):
		id, _ := strconv.ParseInt(commentReactionRe.FindStringSubmatch(p)[1], 10, 64)
		var in struct{ Content string }
		if !decode(w, r, &in) {
			return
		}
		m.CommentReactions[id] = append(m.CommentReactions[id], in.Content)
		writeJSON(w, http.StatusCreated, &gh.Reaction{Content: gh.String(in.Content)})

	case r.Method == http.MethodGet && permissionRe.MatchString(p):
		if m.PermissionStatus != 0 {
			writeError(w, m.PermissionStatus)
			return
		}
		perm, ok := m.Permissions[permissionRe.FindStringSubmatch(p)[1]]
		if !ok {
			perm = "read"
		}
		writeJSON(w, http.StatusOK, map[string]string{"permission": perm})

	case r.Method == http.MethodPost && accessTokenRe.MatchString(p):
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			writeError(w, http.StatusUnauthorized)
			return
		}
		m.TokensMinted++
		writeJSON(w, http.StatusCreated, map[string]string{
			"token":      fmt.Sprintf("ghs_test_%d", m.TokensMinted),
			"expires_at": "2099-01-01T00:00:00Z",
		})

	default:
		writeError(w, http.StatusNotFound)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int) {
	writeJSON(w, code, map[string]string{"message": http.StatusText(code)})
}
