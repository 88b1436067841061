package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/unimind/uniquery/internal/core/domain"
)

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type processRepoFake struct {
	doc           *domain.Document
	getErr        error
	statusErr     error
	failStatusErr error
	statusCalls   []statusCall
	chunkCount    int
}

func (f *processRepoFake) Create(context.Context, *domain.Document) error { return nil }

func (f *processRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *processRepoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if status == domain.StatusFailed && f.failStatusErr != nil {
		return f.failStatusErr
	}
	if f.statusErr != nil {
		return f.statusErr
	}
	return nil
}

func (f *processRepoFake) SetChunkCount(_ context.Context, _ string, chunkCount int) error {
	f.chunkCount = chunkCount
	return nil
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type ocrFake struct {
	text  string
	err   error
	calls int
}

func (f *ocrFake) ExtractText(_ context.Context, body io.Reader, _ string) (string, error) {
	f.calls++
	io.Copy(io.Discard, body)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type transcriberFake struct {
	text  string
	calls int
}

func (f *transcriberFake) Transcribe(_ context.Context, body io.Reader, _ string) (string, error) {
	f.calls++
	io.Copy(io.Discard, body)
	return f.text, nil
}

type chunkerFake struct {
	chunks []string
}

func (f *chunkerFake) Split(string) []string { return f.chunks }

type embedderFake struct {
	vectors [][]float32
	err     error
}

func (f *embedderFake) Embed(context.Context, []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) { return nil, nil }

type vectorFake struct {
	err     error
	indexed []domain.DocumentChunk
}

func (f *vectorFake) IndexChunks(_ context.Context, _ *domain.Document, chunks []domain.DocumentChunk, _ [][]float32) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = chunks
	return nil
}

func (f *vectorFake) Search(context.Context, []float32, int, domain.SearchFilter) ([]domain.DocumentChunk, error) {
	return nil, nil
}

func (f *vectorFake) SearchLexical(context.Context, string, int, domain.SearchFilter) ([]domain.DocumentChunk, error) {
	return nil, nil
}

func (f *vectorFake) FetchChunks(context.Context, string, []int) ([]domain.DocumentChunk, error) {
	return nil, nil
}

func newProcessUseCase(repo *processRepoFake, extractor *extractorFake, ocr *ocrFake, transcriber *transcriberFake, chunker *chunkerFake, embedder *embedderFake, vector *vectorFake) *ProcessDocumentUseCase {
	return NewProcessDocumentUseCase(
		repo,
		&ingestStorageFake{},
		extractor,
		ocr,
		transcriber,
		chunker,
		embedder,
		vector,
	)
}

func TestProcessByIDSuccess(t *testing.T) {
	repo := &processRepoFake{doc: &domain.Document{ID: "doc-1", Filename: "notes.txt", Modality: domain.ModalityText, Language: "en"}}
	vector := &vectorFake{}
	uc := newProcessUseCase(
		repo,
		&extractorFake{text: "text"},
		&ocrFake{},
		&transcriberFake{},
		&chunkerFake{chunks: []string{"a", "b"}},
		&embedderFake{vectors: [][]float32{{1}, {2}}},
		vector,
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected 2 status calls, got %d", len(repo.statusCalls))
	}
	if repo.statusCalls[0].status != domain.StatusProcessing || repo.statusCalls[1].status != domain.StatusReady {
		t.Fatalf("unexpected status sequence: %+v", repo.statusCalls)
	}
	if repo.chunkCount != 2 {
		t.Fatalf("expected chunk count 2, got %d", repo.chunkCount)
	}
	if len(vector.indexed) != 2 {
		t.Fatalf("expected 2 indexed chunks, got %d", len(vector.indexed))
	}
	first := vector.indexed[0]
	if first.DocumentID != "doc-1" || first.ChunkIndex != 0 || first.Filename != "notes.txt" {
		t.Fatalf("unexpected chunk metadata: %+v", first)
	}
	if first.Modality != domain.ModalityText || first.Language != "en" {
		t.Fatalf("expected modality and language propagated, got %+v", first)
	}
	if first.ID == "" {
		t.Fatalf("expected a chunk id")
	}
}

func TestProcessByIDRoutesImageThroughOCR(t *testing.T) {
	repo := &processRepoFake{doc: &domain.Document{ID: "doc-1", Modality: domain.ModalityImage}}
	ocr := &ocrFake{text: "scanned words"}
	extractor := &extractorFake{err: errors.New("should not be called")}
	uc := newProcessUseCase(repo, extractor, ocr, &transcriberFake{}, &chunkerFake{chunks: []string{"scanned words"}}, &embedderFake{vectors: [][]float32{{1}}}, &vectorFake{})

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if ocr.calls != 1 {
		t.Fatalf("expected one ocr call, got %d", ocr.calls)
	}
}

func TestProcessByIDRoutesAudioThroughTranscriber(t *testing.T) {
	repo := &processRepoFake{doc: &domain.Document{ID: "doc-1", Modality: domain.ModalityAudio}}
	transcriber := &transcriberFake{text: "spoken words"}
	uc := newProcessUseCase(repo, &extractorFake{}, &ocrFake{}, transcriber, &chunkerFake{chunks: []string{"spoken words"}}, &embedderFake{vectors: [][]float32{{1}}}, &vectorFake{})

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if transcriber.calls != 1 {
		t.Fatalf("expected one transcription call, got %d", transcriber.calls)
	}
}

func TestProcessByIDFailsWithoutOCREngine(t *testing.T) {
	repo := &processRepoFake{doc: &domain.Document{ID: "doc-1", Modality: domain.ModalityImage}}
	uc := NewProcessDocumentUseCase(repo, &ingestStorageFake{}, &extractorFake{}, nil, nil, &chunkerFake{chunks: []string{"a"}}, &embedderFake{vectors: [][]float32{{1}}}, &vectorFake{})

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error without an ocr engine")
	}
	if !strings.Contains(err.Error(), "no ocr engine") {
		t.Fatalf("expected a configuration error, got %v", err)
	}
	if repo.statusCalls[len(repo.statusCalls)-1].status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %+v", repo.statusCalls)
	}
}

func TestProcessByIDMarksFailedOnExtractError(t *testing.T) {
	repo := &processRepoFake{doc: &domain.Document{ID: "doc-1", Modality: domain.ModalityText}}
	uc := newProcessUseCase(
		repo,
		&extractorFake{err: errors.New("extract fail")},
		&ocrFake{},
		&transcriberFake{},
		&chunkerFake{chunks: []string{"a"}},
		&embedderFake{vectors: [][]float32{{1}}},
		&vectorFake{},
	)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected processing + failed status updates, got %d", len(repo.statusCalls))
	}
	if repo.statusCalls[1].status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %+v", repo.statusCalls[1])
	}
}

func TestProcessByIDMarksFailedOnVectorMismatch(t *testing.T) {
	repo := &processRepoFake{doc: &domain.Document{ID: "doc-1", Modality: domain.ModalityText}}
	uc := newProcessUseCase(
		repo,
		&extractorFake{text: "text"},
		&ocrFake{},
		&transcriberFake{},
		&chunkerFake{chunks: []string{"a", "b"}},
		&embedderFake{vectors: [][]float32{{1}}},
		&vectorFake{},
	)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.statusCalls) != 2 || repo.statusCalls[1].status != domain.StatusFailed {
		t.Fatalf("expected final failed status, got %+v", repo.statusCalls)
	}
}
