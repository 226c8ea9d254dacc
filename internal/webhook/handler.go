package webhook

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	gh "github.com/google/go-github/v66/github"
	"github.com/google/uuid"

	"github.com/cexll/checklist-gate/internal/evalstore"
	"github.com/cexll/checklist-gate/internal/github/validation"
)

const deliveryTTL = 12 * time.Hour

// prActions trigger an evaluation; watchActions also request the one-shot
// mergeability watch because the merge box is recomputed.
var (
	prActions = map[string]bool{
		"opened":           true,
		"reopened":         true,
		"edited":           true,
		"synchronize":      true,
		"ready_for_review": true,
	}
	watchActions = map[string]bool{
		"opened":      true,
		"reopened":    true,
		"synchronize": true,
	}
)

// Handler handles GitHub webhook events
type Handler struct {
	webhookSecret  string
	triggerKeyword string
	dispatcher     JobDispatcher
	deliveries     *deduper
	comments       *deduper
	store          *evalstore.Store
	now            func() time.Time
}

// NewHandler creates a new webhook handler. store may be nil.
func NewHandler(webhookSecret, triggerKeyword string, dispatcher JobDispatcher, store *evalstore.Store) *Handler {
	return &Handler{
		webhookSecret:  webhookSecret,
		triggerKeyword: triggerKeyword,
		dispatcher:     dispatcher,
		deliveries:     newDeduper(deliveryTTL),
		comments:       newDeduper(deliveryTTL),
		store:          store,
		now:            time.Now,
	}
}

// Handle handles pull_request and issue_comment events.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("[Webhook] Error reading payload: %v", err)
		http.Error(w, "Error reading payload", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Hub-Signature-256")
	if err := ValidateSignatureHeader(signature); err != nil {
		log.Printf("[Webhook] Invalid signature header: %v", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}
	if !VerifySignature(payload, signature, h.webhookSecret) {
		log.Printf("[Webhook] Signature verification failed")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := gh.WebHookType(r)
	deliveryID := gh.DeliveryID(r)

	switch eventType {
	case "ping":
		writeText(w, http.StatusOK, "pong")
		return
	case "pull_request", "issue_comment":
	default:
		log.Printf("[Webhook] Ignoring unsupported event type: %s", eventType)
		writeText(w, http.StatusOK, "Event ignored")
		return
	}

	if !h.deliveries.markIfNew(deliveryID) {
		log.Printf("[Webhook] Ignoring duplicate delivery %s", deliveryID)
		writeText(w, http.StatusOK, "Duplicate delivery ignored")
		return
	}

	event, err := gh.ParseWebHook(eventType, payload)
	if err != nil {
		h.deliveries.forget(deliveryID)
		log.Printf("[Webhook] Error parsing %s event: %v", eventType, err)
		http.Error(w, "Error parsing event", http.StatusBadRequest)
		return
	}

	var jobs []*Job
	var reason string
	switch e := event.(type) {
	case *gh.PullRequestEvent:
		jobs, reason = h.pullRequestJobs(e)
	case *gh.IssueCommentEvent:
		jobs, reason = h.issueCommentJobs(e)
	}
	if len(jobs) == 0 {
		log.Printf("[Webhook] %s %s ignored: %s", eventType, deliveryID, reason)
		writeText(w, http.StatusOK, reason)
		return
	}

	for _, job := range jobs {
		job.DeliveryID = deliveryID
		job.Event = eventType
		if err := h.dispatcher.Enqueue(job); err != nil {
			// let GitHub redeliver
			h.deliveries.forget(deliveryID)
			log.Printf("[Webhook] Failed to enqueue %s: %v", job, err)
			switch {
			case errors.Is(err, ErrQueueFull):
				http.Error(w, "Job queue is busy, try again later", http.StatusServiceUnavailable)
			case errors.Is(err, ErrQueueClosed):
				http.Error(w, "Job queue unavailable", http.StatusServiceUnavailable)
			default:
				http.Error(w, "Failed to enqueue job", http.StatusInternalServerError)
			}
			return
		}
		if h.store != nil {
			h.store.Queued(job.Owner, job.Repo, job.Number, job.ID, string(job.Kind))
		}
		log.Printf("[Webhook] Queued %s (action=%s, sender=%s)", job, job.Action, job.Sender)
	}

	writeText(w, http.StatusAccepted, "Job queued")
}

func (h *Handler) pullRequestJobs(e *gh.PullRequestEvent) ([]*Job, string) {
	action := e.GetAction()
	if !prActions[action] {
		return nil, "Pull request action ignored"
	}
	pr := e.GetPullRequest()
	if pr.GetState() != "open" {
		return nil, "Pull request is not open"
	}

	base := h.newJob(JobEvaluate, e.GetRepo(), pr.GetNumber(), e.GetInstallation().GetID())
	base.Action = action
	base.Sender = e.GetSender().GetLogin()
	jobs := []*Job{base}

	if watchActions[action] {
		watch := *base
		watch.ID = uuid.NewString()
		watch.Kind = JobWatch
		jobs = append(jobs, &watch)
	}
	return jobs, ""
}

func (h *Handler) issueCommentJobs(e *gh.IssueCommentEvent) ([]*Job, string) {
	if e.GetAction() != "created" {
		return nil, "Issue comment action ignored"
	}
	if !e.GetIssue().IsPullRequest() {
		return nil, "Comment is not on a pull request"
	}
	comment := e.GetComment()
	if validation.IsBot(comment.GetUser()) {
		return nil, "Bot comment ignored"
	}

	kind, found, ok := parseCommand(comment.GetBody(), h.triggerKeyword)
	if !found {
		return nil, "No trigger keyword found"
	}
	if !ok {
		return nil, "Unknown command"
	}

	if !h.comments.markIfNew(strconv.FormatInt(comment.GetID(), 10)) {
		return nil, "Duplicate comment ignored"
	}

	job := h.newJob(kind, e.GetRepo(), e.GetIssue().GetNumber(), e.GetInstallation().GetID())
	job.Action = e.GetAction()
	job.Sender = comment.GetUser().GetLogin()
	job.CommentID = comment.GetID()
	return []*Job{job}, ""
}

func (h *Handler) newJob(kind JobKind, repo *gh.Repository, number int, installationID int64) *Job {
	return &Job{
		ID:             uuid.NewString(),
		Kind:           kind,
		Owner:          repo.GetOwner().GetLogin(),
		Repo:           repo.GetName(),
		Number:         number,
		InstallationID: installationID,
		ReceivedAt:     h.now(),
	}
}

func writeText(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	w.Write([]byte(msg))
}
