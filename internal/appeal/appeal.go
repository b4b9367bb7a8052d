// Package appeal implements the appeal lifecycle: client submission and admin status transitions.
package appeal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/storage"
	"github.com/zeyuan/appeal-service/internal/store"
)

// Ledger performs the deduction on the caller's transactional store.
type Ledger interface {
	Deduct(ctx context.Context, tx *store.Store, appeal *models.Appeal, amount float64) (*models.Transaction, error)
}

// Notifier is told about committed status changes.
type Notifier interface {
	AppealStatusChanged(ctx context.Context, appealID string) error
}

// SubmitInput carries the client form fields.
type SubmitInput struct {
	AccountType  string `json:"account_type" form:"account_type"`
	LoginInfo    string `json:"login_info" form:"login_info"`
	EmailAccount string `json:"email_account" form:"email_account"`
	EmailPass    string `json:"email_pass" form:"email_pass"`
	Description  string `json:"description" form:"description"`
}

// Evidence is an optional attachment uploaded before the appeal is written.
type Evidence struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// TransitionInput carries an admin decision.
type TransitionInput struct {
	Status          models.AppealStatus `json:"status"`
	AdminNotes      string              `json:"admin_notes"`
	DeductionAmount float64             `json:"deduction_amount"`
}

// Service runs appeal operations.
type Service struct {
	store    *store.Store
	blobs    storage.Storage
	ledger   Ledger
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
}

// New constructs an appeal Service. A nil notifier disables status notifications;
// a nil loc uses UTC for follow-up dates.
func New(s *store.Store, blobs storage.Storage, ledger Ledger, notifier Notifier, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: s, blobs: blobs, ledger: ledger, notifier: notifier, loc: loc, now: time.Now}
}

// Submit creates a PENDING appeal for user. Evidence, when present, is stored first;
// an upload failure writes nothing.
func (s *Service) Submit(ctx context.Context, user *models.User, in SubmitInput, evidence *Evidence) (*models.Appeal, error) {
	if user == nil {
		return nil, apperr.Unauthorized("sign in required")
	}
	if user.Balance <= 0 {
		return nil, apperr.Validation("insufficient balance, please recharge before submitting an appeal")
	}
	in.LoginInfo = strings.TrimSpace(in.LoginInfo)
	in.EmailAccount = strings.TrimSpace(in.EmailAccount)
	in.EmailPass = strings.TrimSpace(in.EmailPass)
	if in.LoginInfo == "" || in.EmailAccount == "" || in.EmailPass == "" {
		return nil, apperr.Validation("login info, email account and email password are required")
	}
	accountType, errType := normalizeAccountType(in.AccountType)
	if errType != nil {
		return nil, errType
	}

	now := s.now().UTC()
	screenshot := ""
	if evidence != nil && evidence.Body != nil {
		if evidence.Size > storage.MaxEvidenceBytes {
			return nil, apperr.Validation("evidence file exceeds %d MB", storage.MaxEvidenceBytes>>20)
		}
		url, errUpload := s.blobs.Upload(ctx, storage.EvidenceKey(evidence.Name, now), evidence.ContentType,
			io.LimitReader(evidence.Body, storage.MaxEvidenceBytes+1))
		if errUpload != nil {
			if apperr.KindOf(errUpload) == "" {
				errUpload = apperr.Upload("evidence upload failed", errUpload)
			}
			return nil, errUpload
		}
		screenshot = url
	}

	appeal := &models.Appeal{
		UserID:       user.ID,
		Username:     user.Username,
		AccountType:  accountType,
		LoginInfo:    in.LoginInfo,
		EmailAccount: in.EmailAccount,
		EmailPass:    in.EmailPass,
		Description:  strings.TrimSpace(in.Description),
		Screenshot:   screenshot,
		Status:       models.AppealPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if errCreate := s.store.CreateAppeal(ctx, appeal); errCreate != nil {
		return nil, errCreate
	}
	log.WithFields(log.Fields{"appeal": appeal.ID, "user": user.ID}).Info("appeal: submitted")
	return appeal, nil
}

// Transition moves an appeal to a new status. Entering PASSED from any other status with a
// positive amount deducts it from the owner's balance in the same database transaction, so
// the deduction and the status write commit or roll back together.
func (s *Service) Transition(ctx context.Context, appealID string, in TransitionInput) (*models.Appeal, error) {
	switch in.Status {
	case models.AppealProcessing, models.AppealFollowUp, models.AppealPassed, models.AppealRejected:
	default:
		return nil, apperr.Validation("invalid target status %q", in.Status)
	}
	if in.DeductionAmount < 0 || math.IsNaN(in.DeductionAmount) || math.IsInf(in.DeductionAmount, 0) {
		return nil, apperr.Validation("deduction amount must not be negative")
	}

	var (
		updated  *models.Appeal
		previous models.AppealStatus
	)
	errTx := s.store.Transaction(ctx, func(tx *store.Store) error {
		current, errGet := tx.GetAppealForUpdate(ctx, strings.TrimSpace(appealID))
		if errGet != nil {
			return errGet
		}
		previous = current.Status
		now := s.now()

		deduction := 0.0
		if in.Status == models.AppealPassed {
			deduction = in.DeductionAmount
			if previous == models.AppealPassed {
				deduction = current.DeductionAmount
			} else if in.DeductionAmount > 0 {
				if _, errDeduct := s.ledger.Deduct(ctx, tx, current, in.DeductionAmount); errDeduct != nil {
					if !apperr.IsKind(errDeduct, apperr.KindLedger) {
						errDeduct = apperr.Ledger("deduction failed", errDeduct)
					}
					return errDeduct
				}
			}
		}

		current.Status = in.Status
		current.StatusDetail = ""
		if in.Status == models.AppealFollowUp {
			current.StatusDetail = FollowUpDetail(now, s.loc)
		}
		current.AdminNotes = in.AdminNotes
		current.DeductionAmount = deduction
		current.UpdatedAt = now.UTC()
		if errSave := tx.UpsertAppeal(ctx, current); errSave != nil {
			if !apperr.IsKind(errSave, apperr.KindPersistence) {
				errSave = apperr.Persistence("appeal write failed", errSave)
			}
			return errSave
		}
		updated = current
		return nil
	})
	if errTx != nil {
		var appErr *apperr.Error
		if !errors.As(errTx, &appErr) {
			errTx = apperr.Persistence("appeal transition failed", errTx)
		}
		return nil, errTx
	}

	log.WithFields(log.Fields{
		"appeal": updated.ID,
		"from":   previous,
		"to":     updated.Status,
	}).Info("appeal: status updated")
	if previous != updated.Status {
		s.notify(ctx, updated.ID)
	}
	return updated, nil
}

// Get loads one appeal. Non-staff callers only see their own.
func (s *Service) Get(ctx context.Context, viewer *models.User, id string) (*models.Appeal, error) {
	appeal, errGet := s.store.GetAppeal(ctx, id)
	if errGet != nil {
		return nil, errGet
	}
	if viewer == nil || (!viewer.Role.IsStaff() && appeal.UserID != viewer.ID) {
		return nil, apperr.NotFound("appeal not found")
	}
	return appeal, nil
}

// ListForUser returns the user's own appeals newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Appeal, error) {
	return s.store.ListAppeals(ctx, store.AppealFilter{UserID: userID})
}

// Search lists every appeal matching the admin filter.
func (s *Service) Search(ctx context.Context, f store.AppealFilter) ([]models.Appeal, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("unknown status %q", f.Status)
	}
	return s.store.ListAppeals(ctx, f)
}

func (s *Service) notify(ctx context.Context, appealID string) {
	if s.notifier == nil {
		return
	}
	if errNotify := s.notifier.AppealStatusChanged(ctx, appealID); errNotify != nil {
		log.WithError(errNotify).WithField("appeal", appealID).Warn("appeal: queue status notification")
	}
}

// FollowUpDetail renders the follow-up annotation for the date of now in loc.
func FollowUpDetail(now time.Time, loc *time.Location) string {
	local := now.In(loc)
	return fmt.Sprintf("%d月%d日已跟进", int(local.Month()), local.Day())
}

// TicketText is the summary a client copies to customer service.
func TicketText(appeal *models.Appeal) string {
	return fmt.Sprintf("老板，我在网站提了新的申诉，单号：%s，账号：%s，麻烦优先处理一下！", models.ShortID(appeal.ID), appeal.EmailAccount)
}

func normalizeAccountType(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.AccountTypes[0], nil
	}
	for _, t := range models.AccountTypes {
		if strings.EqualFold(t, raw) {
			return t, nil
		}
	}
	return "", apperr.Validation("unknown account type %q", raw)
}
