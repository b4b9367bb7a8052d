// Package notify e-mails clients when an appeal changes status.
// Changes are queued through asynq and delivered by a worker.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/models"
)

// TypeAppealStatusChanged is the asynq task type for status e-mails.
const TypeAppealStatusChanged = "appeal:status_changed"

// Queue is the asynq queue notifications run on.
const Queue = "notifications"

// StatusSubject is the subject line of status e-mails.
const StatusSubject = "申诉状态更新"

// StatusChangedPayload is the task body.
type StatusChangedPayload struct {
	AppealID string `json:"appeal_id"`
}

// NewStatusChangedTask builds the task for appealID.
func NewStatusChangedTask(appealID string) (*asynq.Task, error) {
	data, errMarshal := json.Marshal(StatusChangedPayload{AppealID: appealID})
	if errMarshal != nil {
		return nil, errMarshal
	}
	return asynq.NewTask(TypeAppealStatusChanged, data, asynq.Queue(Queue), asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// Enqueuer is the part of *asynq.Client the notifier uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier queues a status e-mail per change.
type QueueNotifier struct {
	client Enqueuer
}

// NewQueueNotifier wraps an asynq client.
func NewQueueNotifier(client Enqueuer) *QueueNotifier {
	return &QueueNotifier{client: client}
}

// AppealStatusChanged enqueues the e-mail task.
func (n *QueueNotifier) AppealStatusChanged(ctx context.Context, appealID string) error {
	task, errTask := NewStatusChangedTask(appealID)
	if errTask != nil {
		return fmt.Errorf("notify: build task: %w", errTask)
	}
	info, errEnqueue := n.client.EnqueueContext(ctx, task)
	if errEnqueue != nil {
		return fmt.Errorf("notify: enqueue: %w", errEnqueue)
	}
	log.WithFields(log.Fields{"appeal_id": appealID, "task_id": info.ID}).Debug("notify: status e-mail queued")
	return nil
}

// LogNotifier only logs changes. It is used when the queue or the mail key is not configured.
type LogNotifier struct{}

// AppealStatusChanged logs the change.
func (LogNotifier) AppealStatusChanged(_ context.Context, appealID string) error {
	log.WithField("appeal_id", appealID).Info("notify: status changed (mail delivery disabled)")
	return nil
}

// AppealSource loads what a status e-mail needs.
type AppealSource interface {
	GetAppeal(ctx context.Context, id string) (*models.Appeal, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Handler delivers status e-mails for queued tasks.
type Handler struct {
	source   AppealSource
	mailer   Mailer
	siteName func() string
}

// NewHandler constructs a Handler. siteName supplies the signature line.
func NewHandler(source AppealSource, mailer Mailer, siteName func() string) *Handler {
	if siteName == nil {
		siteName = func() string { return "" }
	}
	return &Handler{source: source, mailer: mailer, siteName: siteName}
}

// ProcessTask implements asynq.Handler.
func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p StatusChangedPayload
	if errUnmarshal := json.Unmarshal(t.Payload(), &p); errUnmarshal != nil || p.AppealID == "" {
		return fmt.Errorf("notify: bad payload %q: %w", t.Payload(), asynq.SkipRetry)
	}
	appeal, errAppeal := h.source.GetAppeal(ctx, p.AppealID)
	if errAppeal != nil {
		return skipIfMissing(errAppeal)
	}
	user, errUser := h.source.GetUser(ctx, appeal.UserID)
	if errUser != nil {
		return skipIfMissing(errUser)
	}
	if strings.TrimSpace(user.Email) == "" {
		log.WithField("user_id", user.ID).Warn("notify: user has no e-mail")
		return nil
	}
	if errSend := h.mailer.Send(ctx, StatusMessage(appeal, user, h.siteName())); errSend != nil {
		return errSend
	}
	log.WithFields(log.Fields{"appeal_id": appeal.ID, "status": appeal.Status}).Info("notify: status e-mail sent")
	return nil
}

func skipIfMissing(err error) error {
	if apperr.IsKind(err, apperr.KindNotFound) {
		return fmt.Errorf("notify: %v: %w", err, asynq.SkipRetry)
	}
	return err
}

// NewServeMux routes notification tasks to h.
func NewServeMux(h *Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeAppealStatusChanged, h)
	return mux
}

// StatusMessage renders the status e-mail.
func StatusMessage(appeal *models.Appeal, user *models.User, siteName string) Message {
	name := strings.TrimSpace(user.Username)
	if name == "" {
		name = user.Email
	}
	status := appeal.Status.Label()
	if appeal.Status == models.AppealFollowUp && appeal.StatusDetail != "" {
		status += "（" + appeal.StatusDetail + "）"
	}

	lines := []string{
		fmt.Sprintf("%s，您好：", name),
		fmt.Sprintf("您的申诉（单号 %s，账号 %s）状态已更新为：%s。", models.ShortID(appeal.ID), appeal.EmailAccount, status),
	}
	if notes := strings.TrimSpace(appeal.AdminNotes); notes != "" {
		lines = append(lines, "管理员备注："+notes)
	}
	if appeal.Status == models.AppealPassed && appeal.DeductionAmount > 0 {
		lines = append(lines, fmt.Sprintf("本次扣费：%.2f", appeal.DeductionAmount))
	}
	if siteName != "" {
		lines = append(lines, "", siteName)
	}

	escaped := make([]string, len(lines))
	for i, line := range lines {
		escaped[i] = html.EscapeString(line)
	}
	return Message{
		To:      user.Email,
		ToName:  name,
		Subject: StatusSubject,
		Text:    strings.Join(lines, "\n"),
		HTML:    "<p>" + strings.Join(escaped, "<br/>") + "</p>",
	}
}

var errNoQueue = errors.New("notify: queue not configured")

// Backlog reports how many notification tasks wait in the queue.
type Backlog struct {
	Pending   int `json:"pending"`
	Active    int `json:"active"`
	Retry     int `json:"retry"`
	Scheduled int `json:"scheduled"`
}

// QueueInspector reads queue statistics.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// QueueBacklog returns the notification queue depth. A nil inspector is an error.
func QueueBacklog(inspector QueueInspector) (Backlog, error) {
	if inspector == nil {
		return Backlog{}, errNoQueue
	}
	info, errInfo := inspector.GetQueueInfo(Queue)
	if errInfo != nil {
		if errors.Is(errInfo, asynq.ErrQueueNotFound) {
			return Backlog{}, nil
		}
		return Backlog{}, fmt.Errorf("notify: queue info: %w", errInfo)
	}
	return Backlog{Pending: info.Pending, Active: info.Active, Retry: info.Retry, Scheduled: info.Scheduled}, nil
}
