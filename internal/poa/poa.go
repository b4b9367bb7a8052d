package poa

import (
	"bytes"
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/docproc"
	"github.com/zeyuan/appeal-service/internal/kb"
	"github.com/zeyuan/appeal-service/internal/llm"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/storage"
)

// References is the part of the knowledge base generation reads from.
type References interface {
	Search(ctx context.Context, t kb.PoaType, subType string, limit int) ([]models.KnowledgeBaseItem, error)
	IncrementUsage(ctx context.Context, id string) error
}

// Result is a generated letter and what it was built from.
type Result struct {
	Text       string   `json:"text"`
	References []string `json:"references"` // Titles of the letters used as examples.
	Staff      Staff    `json:"staff"`
}

// Service drafts POA letters.
type Service struct {
	refs  References
	gen   llm.Generator
	blobs storage.Storage
	loc   *time.Location
	now   func() time.Time
	staff func() Staff
}

// New constructs a Service. blobs may be nil, in which case uploaded spreadsheets are not kept.
func New(refs References, gen llm.Generator, blobs storage.Storage, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		refs:  refs,
		gen:   gen,
		blobs: blobs,
		loc:   loc,
		now:   time.Now,
		staff: func() Staff { return RandomStaff(nil) },
	}
}

// Generate retrieves the top references, builds the prompt and calls the generator.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	today := s.now().In(s.loc)
	req, errReq := req.normalize(today)
	if errReq != nil {
		return nil, errReq
	}

	refs, errSearch := s.refs.Search(ctx, req.Type, req.SubType, kb.DefaultSearchLimit)
	if errSearch != nil {
		return nil, errSearch
	}
	titles := make([]string, 0, len(refs))
	for _, ref := range refs {
		titles = append(titles, ref.Title)
		if errInc := s.refs.IncrementUsage(ctx, ref.ID); errInc != nil {
			log.WithError(errInc).WithField("kb_id", ref.ID).Warn("poa: increment reference usage")
		}
	}

	staff := s.staff()
	prompt, errPrompt := BuildPrompt(req, refs, staff, today)
	if errPrompt != nil {
		return nil, errPrompt
	}
	text, errGen := s.gen.Generate(ctx, prompt)
	if errGen != nil {
		if apperr.KindOf(errGen) == "" {
			return nil, apperr.Generation("generation failed", errGen)
		}
		return nil, errGen
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Generation("generation returned no text", nil)
	}
	log.WithFields(log.Fields{
		"type":       req.Type,
		"sub_type":   req.SubType,
		"references": len(refs),
	}).Info("poa: letter generated")
	return &Result{Text: FillPlaceholders(text, req), References: titles, Staff: staff}, nil
}

// FlattenEvidence turns an uploaded metrics spreadsheet into prompt text and keeps a copy in blob storage.
func (s *Service) FlattenEvidence(ctx context.Context, name, contentType string, data []byte) (docproc.Extract, error) {
	extract, errFlatten := docproc.FlattenSpreadsheet(name, bytes.NewReader(data))
	if errFlatten != nil {
		return docproc.Extract{}, errFlatten
	}
	if s.blobs != nil {
		key := storage.EvidenceKey(name, s.now())
		if _, errUpload := s.blobs.Upload(ctx, key, contentType, bytes.NewReader(data)); errUpload != nil {
			log.WithError(errUpload).WithField("key", key).Warn("poa: back up spreadsheet")
		}
	}
	return extract, nil
}
