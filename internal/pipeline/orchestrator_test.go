package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edilcheck/compliance-pipeline/constants"
	"github.com/edilcheck/compliance-pipeline/internal/entity"
	"github.com/edilcheck/compliance-pipeline/internal/probe"
	"github.com/edilcheck/compliance-pipeline/internal/rulebook"
	"github.com/edilcheck/compliance-pipeline/internal/validator"
	"github.com/edilcheck/compliance-pipeline/internal/versioning"
)

type fakeObjects struct {
	data map[string][]byte
}

func (f *fakeObjects) Get(_ context.Context, key string) ([]byte, error) {
	b, ok := f.data[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return b, nil
}

func (f *fakeObjects) URI(key string) string { return "s3://test/" + key }

type fakeProber struct {
	text string
}

func (f *fakeProber) Probe(_ context.Context, _ []byte) (probe.Result, error) {
	return probe.FromText(f.text), nil
}

type fakeOCR struct {
	pages      []string
	syncCalls  int
	batchCalls int
	batchURI   string
}

func (f *fakeOCR) Sync(_ context.Context, _ []byte) ([]string, error) {
	f.syncCalls++
	return f.pages, nil
}

func (f *fakeOCR) Batch(_ context.Context, uri string) ([]string, error) {
	f.batchCalls++
	f.batchURI = uri
	return f.pages, nil
}

type fakeCatalog struct{}

func (fakeCatalog) RulesFor(_ context.Context, docType string) *rulebook.RuleSet {
	if docType == constants.DocTypeDURC {
		return &rulebook.RuleSet{DocType: docType}
	}
	return nil
}

func (fakeCatalog) RequiredPIIFields(_ context.Context, _ string) []string { return nil }

type fakeSearcher struct {
	chunks []entity.RetrievedChunk
	tenant string
}

func (f *fakeSearcher) Retrieve(_ context.Context, tenantID, _ string) []entity.RetrievedChunk {
	f.tenant = tenantID
	return f.chunks
}

type fakeValidator struct {
	verdict entity.Verdict
	err     error
	lastIn  validator.Input
}

func (f *fakeValidator) Validate(_ context.Context, in validator.Input) (entity.Verdict, error) {
	f.lastIn = in
	if f.err != nil {
		return entity.Verdict{}, f.err
	}
	v := f.verdict
	if v.Doc.DocType == "" {
		v.Doc.DocType = in.DocType
	}
	return v, nil
}

type noopOverride struct{}

func (noopOverride) Apply(_ *entity.Verdict) {}

type fixture struct {
	orch     *Orchestrator
	objects  *fakeObjects
	prober   *fakeProber
	ocr      *fakeOCR
	search   *fakeSearcher
	valid    *fakeValidator
	runs     *MemoryRuns
	versions *versioning.MemoryStore
}

func newFixture(text string) *fixture {
	f := &fixture{
		objects: &fakeObjects{data: map[string][]byte{
			"docs/t1/c1/durc.pdf": []byte("%PDF-1.4 fake"),
		}},
		prober: &fakeProber{text: text},
		ocr:    &fakeOCR{pages: []string{"DURC regolarità contributiva via OCR"}},
		search: &fakeSearcher{chunks: []entity.RetrievedChunk{
			{ID: "kb:dm2015:p3", Source: "dm2015", Page: 3, Score: 0.7},
		}},
		valid: &fakeValidator{verdict: entity.Verdict{
			Overall: entity.Overall{Status: "green", IsValid: true, Reasons: []string{"ok"}},
		}},
		runs:     NewMemoryRuns(),
		versions: versioning.NewMemoryStore(),
	}
	f.orch = NewOrchestrator(
		f.objects, f.prober, f.ocr,
		func(text string) string {
			if strings.Contains(strings.ToLower(text), "durc") {
				return constants.DocTypeDURC
			}
			return ""
		},
		fakeCatalog{}, f.search, f.valid, noopOverride{},
		versioning.NewManager(f.versions, nil), f.runs,
		Config{EnableIdempotency: true},
		nil,
	)
	return f
}

func pdfEvent() UploadEvent {
	return UploadEvent{
		ObjectName:  "docs/t1/c1/durc.pdf",
		ContentType: "application/pdf",
		Generation:  "gen-1",
	}
}

func TestProcessNativeTextHappyPath(t *testing.T) {
	f := newFixture("DURC esito REGOLARE, testo nativo sufficiente per superare la soglia di gating")

	report, err := f.orch.Process(context.Background(), pdfEvent())

	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, constants.DocTypeDURC, report.DocType)
	assert.Equal(t, 1, report.Version)
	assert.Equal(t, "green", report.Status)
	assert.Equal(t, 0, f.ocr.syncCalls)
	assert.Equal(t, 0, f.ocr.batchCalls)
	assert.Equal(t, "t1", f.search.tenant)

	run, ok := f.runs.Get(report.RunID)
	require.True(t, ok)
	assert.Equal(t, string(constants.RunStateDone), run.State)
	require.NotNil(t, run.DocumentID)
	assert.Equal(t, report.DocumentID, *run.DocumentID)
	assert.Equal(t, string(constants.OCRModeNone), run.OCRMode)

	rec, ok := f.versions.Get(report.DocumentID)
	require.True(t, ok)
	assert.True(t, rec.IsCurrent)
	assert.Equal(t, constants.DocTypeDURC, rec.DocType)
}

func TestProcessScannedDocumentRunsSyncOCR(t *testing.T) {
	f := newFixture("") // empty text layer forces OCR

	report, err := f.orch.Process(context.Background(), pdfEvent())

	require.NoError(t, err)
	assert.Equal(t, 1, f.ocr.syncCalls)
	assert.Equal(t, 0, f.ocr.batchCalls)
	// the validator must see OCR output, not the empty native text
	assert.Contains(t, f.valid.lastIn.FullText, "via OCR")
	assert.Equal(t, constants.DocTypeDURC, report.DocType)

	run, _ := f.runs.Get(report.RunID)
	assert.Equal(t, string(constants.OCRModeSync), run.OCRMode)
}

func TestProcessLongDocumentRunsBatchOCR(t *testing.T) {
	pages := make([]string, 40)
	f := newFixture(strings.Join(pages, "\f"))

	report, err := f.orch.Process(context.Background(), pdfEvent())

	require.NoError(t, err)
	assert.Equal(t, 1, f.ocr.batchCalls)
	assert.Equal(t, "s3://test/docs/t1/c1/durc.pdf", f.ocr.batchURI)

	run, _ := f.runs.Get(report.RunID)
	assert.Equal(t, string(constants.OCRModeBatch), run.OCRMode)
}

func TestProcessDuplicateGenerationSkipped(t *testing.T) {
	f := newFixture("DURC testo nativo sufficiente per superare la soglia minima di caratteri totali")
	ctx := context.Background()

	first, err := f.orch.Process(ctx, pdfEvent())
	require.NoError(t, err)
	require.False(t, first.Skipped)

	second, err := f.orch.Process(ctx, pdfEvent())
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Contains(t, second.SkipReason, "already processed")

	assert.Len(t, f.versions.History("t1:c1:DURC"), 1)
}

func TestProcessNonPDFSkipped(t *testing.T) {
	f := newFixture("qualsiasi")
	ev := pdfEvent()
	ev.ContentType = "image/png"

	report, err := f.orch.Process(context.Background(), ev)

	require.NoError(t, err)
	assert.True(t, report.Skipped)
}

func TestProcessUnaddressableObjectSkipped(t *testing.T) {
	f := newFixture("qualsiasi")
	ev := pdfEvent()
	ev.ObjectName = "tmp/random.pdf"

	report, err := f.orch.Process(context.Background(), ev)

	require.NoError(t, err)
	assert.True(t, report.Skipped)
}

func TestProcessValidatorFailureEndsInError(t *testing.T) {
	f := newFixture("DURC testo nativo sufficiente per superare la soglia minima di caratteri totali")
	f.valid.err = errors.New("collaborator down")

	report, err := f.orch.Process(context.Background(), pdfEvent())

	require.Error(t, err)
	run, ok := f.runs.Get(report.RunID)
	require.True(t, ok)
	assert.Equal(t, string(constants.RunStateError), run.State)
	assert.Contains(t, run.ErrorMessage, "collaborator down")

	assert.Empty(t, f.versions.History("t1:c1:DURC"))
}

func TestProcessDeclaredDocTypeBypassesClassifier(t *testing.T) {
	f := newFixture("testo senza parole chiave ma abbastanza lungo da evitare il gating OCR qui")
	ev := pdfEvent()
	ev.Metadata = map[string]string{"docType": constants.DocTypeVisura}

	report, err := f.orch.Process(context.Background(), ev)

	require.NoError(t, err)
	assert.Equal(t, constants.DocTypeVisura, report.DocType)
	assert.Equal(t, constants.DocTypeVisura, f.valid.lastIn.DocType)
}

func TestProcessUnclassifiedFallsBackToAltro(t *testing.T) {
	f := newFixture("testo generico senza alcuna parola chiave nota, sufficiente per il gating")

	report, err := f.orch.Process(context.Background(), pdfEvent())

	require.NoError(t, err)
	assert.Equal(t, constants.DocTypeAltro, report.DocType)
}
