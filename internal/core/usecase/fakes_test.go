package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type docRepoFake struct {
	docs        map[string]*domain.Document
	getErr      error
	createErr   error
	beginErr    error
	statusErr   error
	statusCalls []statusCall
	deleted     []string
	deleteErr   error
}

func newDocRepoFake(docs ...*domain.Document) *docRepoFake {
	f := &docRepoFake{docs: map[string]*domain.Document{}}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *docRepoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *docRepoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (f *docRepoFake) ListByOwner(_ context.Context, ownerID string) ([]domain.Document, error) {
	var out []domain.Document
	for _, doc := range f.docs {
		if doc.OwnerID == ownerID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *docRepoFake) BeginAnalysis(_ context.Context, id string) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if doc.Status == domain.StatusAnalyzing {
		return domain.ErrConflict
	}
	doc.Status = domain.StatusAnalyzing
	return nil
}

func (f *docRepoFake) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if f.statusErr != nil {
		return f.statusErr
	}
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
		doc.Error = errMessage
	}
	return nil
}

func (f *docRepoFake) UpdateStoragePath(_ context.Context, id, storagePath string) error {
	if doc, ok := f.docs[id]; ok {
		doc.StoragePath = storagePath
	}
	return nil
}

func (f *docRepoFake) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type issueRepoFake struct {
	issues    map[string]*domain.Issue
	byDoc     map[string][]domain.Issue
	unplanned []domain.Issue
	listErr   error
}

func newIssueRepoFake(issues ...*domain.Issue) *issueRepoFake {
	f := &issueRepoFake{issues: map[string]*domain.Issue{}, byDoc: map[string][]domain.Issue{}}
	for _, is := range issues {
		f.issues[is.ID] = is
		f.byDoc[is.DocumentID] = append(f.byDoc[is.DocumentID], *is)
	}
	return f
}

func (f *issueRepoFake) GetByID(_ context.Context, id string) (*domain.Issue, error) {
	issue, ok := f.issues[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copyIssue := *issue
	return &copyIssue, nil
}

func (f *issueRepoFake) ListByDocument(_ context.Context, documentID string, severity domain.Severity) ([]domain.Issue, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Issue
	for _, issue := range f.byDoc[documentID] {
		if severity != "" && issue.Severity != severity {
			continue
		}
		out = append(out, issue)
	}
	return out, nil
}

func (f *issueRepoFake) ListUnplanned(_ context.Context, _ string, _ domain.IssueFilter) ([]domain.Issue, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.unplanned, nil
}

type reportRepoFake struct {
	latest  *domain.AnalysisReport
	reports []domain.AnalysisReport
}

func (f *reportRepoFake) LatestByDocument(_ context.Context, _ string) (*domain.AnalysisReport, error) {
	if f.latest == nil {
		return nil, domain.ErrNotFound
	}
	copyReport := *f.latest
	return &copyReport, nil
}

func (f *reportRepoFake) ListByDocument(_ context.Context, _ string) ([]domain.AnalysisReport, error) {
	return f.reports, nil
}

type resultWriterFake struct {
	err    error
	doc    *domain.Document
	meta   domain.DocumentMetadata
	issues []domain.Issue
	report *domain.AnalysisReport
	calls  int
}

func (f *resultWriterFake) SaveResult(_ context.Context, doc *domain.Document, meta domain.DocumentMetadata, issues []domain.Issue, report *domain.AnalysisReport) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.doc = doc
	f.meta = meta
	f.issues = issues
	f.report = report
	return nil
}

type contentFake struct {
	meta       domain.DocumentMetadata
	content    *domain.DocumentContent
	extractErr error
}

func (f *contentFake) Metadata(context.Context, string) domain.DocumentMetadata {
	return f.meta
}

func (f *contentFake) Extract(context.Context, string) (*domain.DocumentContent, error) {
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return f.content, nil
}

type queueFake struct {
	analyzeIDs []string
	bulkIDs    []string
	analyzeErr error
	bulkErr    error
}

func (f *queueFake) PublishAnalyze(_ context.Context, documentID string) error {
	if f.analyzeErr != nil {
		return f.analyzeErr
	}
	f.analyzeIDs = append(f.analyzeIDs, documentID)
	return nil
}

func (f *queueFake) PublishBulk(_ context.Context, jobID string) error {
	if f.bulkErr != nil {
		return f.bulkErr
	}
	f.bulkIDs = append(f.bulkIDs, jobID)
	return nil
}

func (f *queueFake) SubscribeAnalyze(context.Context, func(context.Context, string) error) error {
	return nil
}

func (f *queueFake) SubscribeBulk(context.Context, func(context.Context, string) error) error {
	return nil
}

type decisionCall struct {
	planID   string
	approved bool
	status   domain.PlanStatus
}

type implementedCall struct {
	planIDs    []string
	issueIDs   []string
	documentID string
	fixedPath  string
}

type planRepoFake struct {
	byIssue      map[string]*domain.RemediationPlan
	createErr    error
	decisionErr  error
	decisions    []decisionCall
	owned        []domain.RemediationPlan
	items        []domain.ImplementationItem
	markErr      error
	implemented  []implementedCall
	createdPlans []*domain.RemediationPlan
}

func newPlanRepoFake() *planRepoFake {
	return &planRepoFake{byIssue: map[string]*domain.RemediationPlan{}}
}

func (f *planRepoFake) Create(_ context.Context, plan *domain.RemediationPlan) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.byIssue[plan.IssueID]; exists {
		return domain.ErrConflict
	}
	f.byIssue[plan.IssueID] = plan
	f.createdPlans = append(f.createdPlans, plan)
	return nil
}

func (f *planRepoFake) GetByIssueID(_ context.Context, issueID string) (*domain.RemediationPlan, error) {
	plan, ok := f.byIssue[issueID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copyPlan := *plan
	return &copyPlan, nil
}

func (f *planRepoFake) UpdateDecision(_ context.Context, planID string, approved bool, status domain.PlanStatus) error {
	f.decisions = append(f.decisions, decisionCall{planID: planID, approved: approved, status: status})
	if f.decisionErr != nil {
		return f.decisionErr
	}
	for _, plan := range f.byIssue {
		if plan.ID == planID {
			plan.UserApproved = approved
			plan.Status = status
		}
	}
	return nil
}

func (f *planRepoFake) ListOwnedByIDs(_ context.Context, _ string, _ []string) ([]domain.RemediationPlan, error) {
	return f.owned, nil
}

func (f *planRepoFake) ListForImplementation(_ context.Context, _ string, _ []string) ([]domain.ImplementationItem, error) {
	return f.items, nil
}

func (f *planRepoFake) MarkImplemented(_ context.Context, planIDs, issueIDs []string, documentID, fixedPath string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.implemented = append(f.implemented, implementedCall{
		planIDs:    planIDs,
		issueIDs:   issueIDs,
		documentID: documentID,
		fixedPath:  fixedPath,
	})
	return nil
}

type jobRepoFake struct {
	jobs      map[string]*domain.BulkJob
	createErr error
	running   []string
	completed []completedJob
}

type completedJob struct {
	id         string
	total      int
	successful int
	failed     int
	errMsg     string
}

func newJobRepoFake(jobs ...*domain.BulkJob) *jobRepoFake {
	f := &jobRepoFake{jobs: map[string]*domain.BulkJob{}}
	for _, j := range jobs {
		f.jobs[j.ID] = j
	}
	return f
}

func (f *jobRepoFake) Create(_ context.Context, job *domain.BulkJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.jobs[job.ID] = job
	return nil
}

func (f *jobRepoFake) GetByID(_ context.Context, id string) (*domain.BulkJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copyJob := *job
	return &copyJob, nil
}

func (f *jobRepoFake) MarkRunning(_ context.Context, id string) error {
	f.running = append(f.running, id)
	if job, ok := f.jobs[id]; ok {
		job.Status = domain.BulkJobRunning
	}
	return nil
}

func (f *jobRepoFake) Complete(_ context.Context, id string, total, successful, failed int, errMessage string) error {
	f.completed = append(f.completed, completedJob{
		id:         id,
		total:      total,
		successful: successful,
		failed:     failed,
		errMsg:     errMessage,
	})
	if job, ok := f.jobs[id]; ok {
		job.Status = domain.BulkJobCompleted
		job.Total = total
		job.Successful = successful
		job.Failed = failed
		job.Error = errMessage
	}
	return nil
}

type generatorFake struct {
	text  string
	err   error
	calls int
}

func (f *generatorFake) Generate(context.Context, domain.GenerationRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type applyCall struct {
	documentPath string
	fixes        []domain.RemediationPayload
}

type applierFake struct {
	fixedPath string
	err       error
	errPaths  map[string]bool
	calls     []applyCall
}

func (f *applierFake) Apply(_ context.Context, documentPath string, fixes []domain.RemediationPayload) (string, error) {
	f.calls = append(f.calls, applyCall{documentPath: documentPath, fixes: fixes})
	if f.err != nil {
		return "", f.err
	}
	if f.errPaths[documentPath] {
		return "", domain.ErrTemporary
	}
	return f.fixedPath, nil
}

type storageFake struct {
	saved     map[string][]byte
	removed   []string
	saveErr   error
	removeErr error
}

func newStorageFake() *storageFake {
	return &storageFake{saved: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = buf
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.saved[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *storageFake) Remove(_ context.Context, key string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.saved, key)
	f.removed = append(f.removed, key)
	return nil
}
