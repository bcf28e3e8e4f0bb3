package usecase

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"essaygenius/internal/domain"
	"essaygenius/internal/domain/model"
	"essaygenius/internal/domain/ports/adapter"
	"essaygenius/internal/domain/ports/repository"
	"essaygenius/internal/infra/docgen"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DownloadURLTTL bounds how long a presigned document link stays valid.
const DownloadURLTTL = 15 * time.Minute

// Compile-time check
var _ PaperUseCase = (*paperUC)(nil)

// PaperUseCase owns the finished-document lifecycle: assembling and storing
// the .docx, listing a user's papers, and serving download links. All reads
// and deletes are scoped to the owning user.
type PaperUseCase interface {
	// SaveGenerated renders the draft into a document, uploads it, and
	// persists the paper record. Returns the paper and its body word count.
	SaveGenerated(ctx context.Context, userID string, req model.EssayRequest, draft string) (*model.Paper, int, error)
	List(ctx context.Context, userID string) ([]*model.Paper, error)
	// DownloadURL returns a short-lived link for the owning user, or
	// domain.ErrNotFound when the paper is missing or owned by someone else.
	DownloadURL(ctx context.Context, userID, paperID string) (string, error)
	Delete(ctx context.Context, userID, paperID string) error
}

type paperUC struct {
	papers repository.PaperRepository
	store  adapter.ObjectStore
	gen    *docgen.Generator
}

func NewPaperUseCase(papers repository.PaperRepository, store adapter.ObjectStore, gen *docgen.Generator) *paperUC {
	return &paperUC{papers: papers, store: store, gen: gen}
}

func (u *paperUC) SaveGenerated(ctx context.Context, userID string, req model.EssayRequest, draft string) (*model.Paper, int, error) {
	format := model.ParseCitationFormat(req.CitationFormat)
	doc, words, err := u.gen.Render(docgen.Paper{
		Title:         req.Title,
		Content:       draft,
		Citations:     FormatReferences(req.Sources, format),
		StudentName:   req.StudentName,
		ProfessorName: req.ProfessorName,
		ClassName:     req.ClassName,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("render document: %w", err)
	}

	p := &model.Paper{
		UserID:         userID,
		Title:          req.Title,
		Description:    "Essay on " + req.Title,
		Status:         model.PaperStatusComplete,
		WordCount:      words,
		CitationFormat: format,
	}
	if err := u.papers.Save(ctx, repository.NoTX, p); err != nil {
		return nil, 0, err
	}

	p.StoragePath = fmt.Sprintf("papers/%s/%s.docx", userID, p.ID)
	if err := u.store.Upload(ctx, p.StoragePath, bytes.NewReader(doc), int64(len(doc)), docxContentType); err != nil {
		return nil, 0, fmt.Errorf("upload document: %w", err)
	}
	if err := u.papers.Save(ctx, repository.NoTX, p); err != nil {
		return nil, 0, err
	}
	return p, words, nil
}

func (u *paperUC) List(ctx context.Context, userID string) ([]*model.Paper, error) {
	return u.papers.ListByUser(ctx, repository.NoTX, userID)
}

func (u *paperUC) DownloadURL(ctx context.Context, userID, paperID string) (string, error) {
	p, err := u.find(ctx, userID, paperID)
	if err != nil {
		return "", err
	}
	return u.store.PresignedURL(ctx, p.StoragePath, DownloadURLTTL)
}

func (u *paperUC) Delete(ctx context.Context, userID, paperID string) error {
	p, err := u.find(ctx, userID, paperID)
	if err != nil {
		return err
	}
	if err := u.papers.Delete(ctx, repository.NoTX, paperID, userID); err != nil {
		return err
	}
	// Best effort: an orphaned object is preferable to a dangling record.
	_ = u.store.Delete(ctx, p.StoragePath)
	return nil
}

func (u *paperUC) find(ctx context.Context, userID, paperID string) (*model.Paper, error) {
	p, err := u.papers.Find(ctx, repository.NoTX, paperID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		// ownership mismatch is indistinguishable from absence
		return nil, domain.ErrNotFound
	}
	return p, nil
}
