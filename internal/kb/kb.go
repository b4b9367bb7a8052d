// Package kb manages the knowledge base of prior successful appeal letters.
package kb

import (
	"context"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/docproc"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/store"
	"gorm.io/datatypes"
)

// DefaultSearchLimit is the number of references handed to generation.
const DefaultSearchLimit = 3

// UnclassifiedTag marks imported letters whose file name matched no rule.
const UnclassifiedTag = "未分类"

// ArchiveTag marks letters archived from a generated POA.
const ArchiveTag = "自动归档"

// Item is the input of Add.
type Item struct {
	Type    PoaType  `json:"type"`
	SubType string   `json:"sub_type"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// ImportFile is one uploaded document of a bulk import.
type ImportFile struct {
	Name string
	Data []byte
}

// ImportReport counts the outcome of a bulk import.
type ImportReport struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"` // Duplicate titles.
	Failed   int      `json:"failed"`  // Wrong type, unreadable or empty.
	Errors   []string `json:"errors,omitempty"`
}

// ArchiveInput describes a generated letter to keep as a reference.
type ArchiveInput struct {
	Type     PoaType `json:"type"`
	SubType  string  `json:"sub_type"`
	Username string  `json:"username"`
	Content  string  `json:"content"`
}

// Service is the knowledge base.
type Service struct {
	store *store.Store
}

// New constructs a knowledge base Service.
func New(s *store.Store) *Service {
	return &Service{store: s}
}

// List returns every item, most used first.
func (s *Service) List(ctx context.Context, actor *models.User) ([]models.KnowledgeBaseItem, error) {
	if errRole := requireSuperAdmin(actor); errRole != nil {
		return nil, errRole
	}
	return s.store.ListKnowledgeBase(ctx)
}

// Add stores a new reference letter. Titles are unique.
func (s *Service) Add(ctx context.Context, actor *models.User, in Item) (*models.KnowledgeBaseItem, error) {
	if errRole := requireSuperAdmin(actor); errRole != nil {
		return nil, errRole
	}
	in.Title = strings.TrimSpace(in.Title)
	in.SubType = strings.TrimSpace(in.SubType)
	if in.Title == "" || strings.TrimSpace(in.Content) == "" {
		return nil, apperr.Validation("title and content are required")
	}
	if !in.Type.Valid() {
		return nil, apperr.Validation("unknown POA type %q", in.Type)
	}
	if in.SubType == "" {
		return nil, apperr.Validation("sub type is required")
	}
	item := &models.KnowledgeBaseItem{
		Type:    string(in.Type),
		SubType: in.SubType,
		Title:   in.Title,
		Content: in.Content,
		Tags:    datatypes.JSONSlice[string](cleanTags(in.Tags)),
	}
	if errCreate := s.store.CreateKnowledgeBaseItem(ctx, item); errCreate != nil {
		return nil, errCreate
	}
	return item, nil
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, actor *models.User, id string) error {
	if errRole := requireSuperAdmin(actor); errRole != nil {
		return errRole
	}
	return s.store.DeleteKnowledgeBaseItem(ctx, id)
}

// Search returns up to limit references of the category, most used first.
// A non-positive limit means DefaultSearchLimit.
func (s *Service) Search(ctx context.Context, t PoaType, subType string, limit int) ([]models.KnowledgeBaseItem, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return s.store.SearchKnowledgeBase(ctx, string(t), subType, limit)
}

// IncrementUsage records that an item was used as a reference.
func (s *Service) IncrementUsage(ctx context.Context, id string) error {
	return s.store.IncrementKnowledgeBaseUsage(ctx, id)
}

// ImportDocx adds every .docx file whose title is not taken yet.
func (s *Service) ImportDocx(ctx context.Context, actor *models.User, files []ImportFile) (ImportReport, error) {
	var report ImportReport
	if errRole := requireSuperAdmin(actor); errRole != nil {
		return report, errRole
	}
	titles, errTitles := s.store.KnowledgeBaseTitles(ctx)
	if errTitles != nil {
		return report, errTitles
	}
	fail := func(name, reason string) {
		report.Failed++
		report.Errors = append(report.Errors, name+": "+reason)
	}
	for _, f := range files {
		base := filepath.Base(f.Name)
		if !strings.EqualFold(filepath.Ext(base), ".docx") {
			fail(base, "not a .docx file")
			continue
		}
		title := strings.TrimSpace(base[:len(base)-len(".docx")])
		if _, exists := titles[title]; exists {
			report.Skipped++
			continue
		}
		text, errExtract := docproc.ExtractDocxBytes(f.Data)
		if errExtract != nil {
			fail(base, apperr.Message(errExtract))
			continue
		}
		if strings.TrimSpace(text) == "" {
			fail(base, "document is empty")
			continue
		}

		var tags []string
		category := Classify(base)
		if category == nil {
			category = &Category{Type: PoaAccountSuspension, SubType: SubAccountOther}
			tags = append(tags, UnclassifiedTag)
		}
		item := &models.KnowledgeBaseItem{
			Type:    string(category.Type),
			SubType: category.SubType,
			Title:   title,
			Content: text,
			Tags:    datatypes.JSONSlice[string](tags),
		}
		if errCreate := s.store.CreateKnowledgeBaseItem(ctx, item); errCreate != nil {
			if apperr.IsKind(errCreate, apperr.KindPersistence) {
				return report, errCreate
			}
			fail(base, apperr.Message(errCreate))
			continue
		}
		titles[title] = struct{}{}
		report.Imported++
	}
	log.WithFields(log.Fields{
		"imported": report.Imported,
		"skipped":  report.Skipped,
		"failed":   report.Failed,
	}).Info("kb: import finished")
	return report, nil
}

// Archive keeps a generated letter as a reference with an initial usage of one.
func (s *Service) Archive(ctx context.Context, actor *models.User, in ArchiveInput) (*models.KnowledgeBaseItem, error) {
	if errRole := requireSuperAdmin(actor); errRole != nil {
		return nil, errRole
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperr.Validation("content is required")
	}
	if !in.Type.Valid() {
		return nil, apperr.Validation("unknown POA type %q", in.Type)
	}
	item := &models.KnowledgeBaseItem{
		Type:       string(in.Type),
		SubType:    in.SubType,
		Title:      ArchiveTitle(in.Username, in.SubType),
		Content:    in.Content,
		Tags:       datatypes.JSONSlice[string]([]string{ArchiveTag}),
		UsageCount: 1,
	}
	if errCreate := s.store.CreateKnowledgeBaseItem(ctx, item); errCreate != nil {
		return nil, errCreate
	}
	return item, nil
}

// ArchiveTitle names an archived letter.
func ArchiveTitle(username, subType string) string {
	return "自动归档: " + strings.TrimSpace(username) + " - " + subType
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func requireSuperAdmin(actor *models.User) error {
	if actor == nil {
		return apperr.Unauthorized("sign in required")
	}
	if actor.Role != models.RoleSuperAdmin {
		return apperr.Forbidden("super admin only")
	}
	return nil
}
