package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/pe-portal-api/internal/ai"
	"github.com/noah-isme/pe-portal-api/internal/media"
	"github.com/noah-isme/pe-portal-api/internal/models"
	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
)

type fakeClassRepo struct {
	classes   map[string]models.Class
	findErr   error
	deleted   []string
	deleteErr error
}

func newFakeClassRepo(ids ...string) *fakeClassRepo {
	repo := &fakeClassRepo{classes: map[string]models.Class{}}
	for _, id := range ids {
		repo.classes[id] = models.Class{ID: id, Name: "Class " + id}
	}
	return repo
}

func (f *fakeClassRepo) List(ctx context.Context) ([]models.Class, error) {
	out := make([]models.Class, 0, len(f.classes))
	for _, c := range f.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	c, ok := f.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (f *fakeClassRepo) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = fmt.Sprintf("class-%d", len(f.classes)+1)
	}
	f.classes[class.ID] = *class
	return nil
}

func (f *fakeClassRepo) DeleteCascade(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.classes[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.classes, id)
	f.deleted = append(f.deleted, id)
	return nil
}

// fakeStudentRepo keeps students in insertion order and lists them the way
// the SQL repository does.
type fakeStudentRepo struct {
	students  []models.Student
	seq       int
	upserts   int
	failNames map[string]error
	listErr   error
	reloadErr error
	listCalls int
}

func (f *fakeStudentRepo) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.reloadErr != nil && f.listCalls > 1 {
		return nil, f.reloadErr
	}
	out := make([]models.Student, 0)
	for _, s := range f.students {
		if s.ClassID == classID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for _, s := range f.students {
		if s.ID == id {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) Upsert(ctx context.Context, student *models.Student) error {
	if err, ok := f.failNames[strings.TrimSpace(student.Name)]; ok {
		return err
	}
	f.upserts++
	if student.ID == "" {
		f.seq++
		student.ID = uuid.NewString()
		student.CreatedAt = time.Unix(int64(f.seq), 0).UTC()
		f.students = append(f.students, *student)
		return nil
	}
	for i := range f.students {
		if f.students[i].ID == student.ID {
			f.students[i] = *student
			return nil
		}
	}
	f.students = append(f.students, *student)
	return nil
}

func (f *fakeStudentRepo) Delete(ctx context.Context, id string) error {
	for i, s := range f.students {
		if s.ID == id {
			f.students = append(f.students[:i], f.students[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeStudentRepo) byName(name string) []models.Student {
	var out []models.Student
	for _, s := range f.students {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// fakeSessionRepo stores parents and children separately like the database.
type fakeSessionRepo struct {
	parents     map[string]models.Session
	children    map[string][]string
	order       []string
	seq         int
	inserts     int
	updates     int
	replaceCall int
	insertErr   error
	updateErr   error
	replaceErr  error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{parents: map[string]models.Session{}, children: map[string][]string{}}
}

func (f *fakeSessionRepo) parentWrites() int { return f.inserts + f.updates }

func (f *fakeSessionRepo) compose(s models.Session) models.Session {
	s.VideoURLs = media.Compose(s.VideoURL, append([]string(nil), f.children[s.ID]...))
	return s
}

func (f *fakeSessionRepo) List(ctx context.Context) ([]models.Session, error) {
	out := make([]models.Session, 0, len(f.order))
	for i := len(f.order) - 1; i >= 0; i-- {
		if s, ok := f.parents[f.order[i]]; ok {
			out = append(out, f.compose(s))
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) ListByClass(ctx context.Context, classID string) ([]models.Session, error) {
	all, _ := f.List(ctx)
	out := make([]models.Session, 0)
	for _, s := range all {
		if s.ClassID == classID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (f *fakeSessionRepo) FindByID(ctx context.Context, id string) (*models.Session, error) {
	s, ok := f.parents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	composed := f.compose(s)
	return &composed, nil
}

func (f *fakeSessionRepo) Insert(ctx context.Context, session *models.Session) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserts++
	f.seq++
	session.ID = uuid.NewString()
	stored := *session
	stored.VideoURLs = nil
	f.parents[session.ID] = stored
	f.order = append(f.order, session.ID)
	return nil
}

func (f *fakeSessionRepo) Update(ctx context.Context, session *models.Session) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.parents[session.ID]; !ok {
		return sql.ErrNoRows
	}
	f.updates++
	stored := *session
	stored.VideoURLs = nil
	f.parents[session.ID] = stored
	return nil
}

func (f *fakeSessionRepo) ReplaceVideos(ctx context.Context, sessionID string, urls []string) error {
	f.replaceCall++
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.children[sessionID] = append([]string(nil), urls...)
	return nil
}

func (f *fakeSessionRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.parents[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.parents, id)
	delete(f.children, id)
	return nil
}

type fakeUploader struct {
	calls  []string
	failOn map[string]error
	empty  map[string]bool
}

func (f *fakeUploader) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	f.calls = append(f.calls, name)
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	if err, ok := f.failOn[name]; ok {
		return "", err
	}
	if f.empty[name] {
		return "", nil
	}
	return "https://cdn.example/videos/" + name, nil
}

func fileVideo(name, body string) models.PendingVideo {
	return models.PendingVideo{
		Kind:        models.PendingVideoFile,
		DisplayName: name,
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

type fakeExtractor struct {
	rows     []models.ScannedGradeRow
	names    []string
	err      error
	calls    int
	text     string
	lastKind models.ContentKind
}

func (f *fakeExtractor) ExtractGrades(ctx context.Context, img ai.Image) ([]models.ScannedGradeRow, error) {
	f.calls++
	return f.rows, f.err
}

func (f *fakeExtractor) ExtractNames(ctx context.Context, img ai.Image) ([]string, error) {
	f.calls++
	return f.names, f.err
}

func (f *fakeExtractor) Generate(ctx context.Context, topic string, kind models.ContentKind) (string, error) {
	f.calls++
	f.lastKind = kind
	return f.text, f.err
}

type fakeActivityRepo struct {
	items     map[string]models.Activity
	seq       int
	insertErr error
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{items: map[string]models.Activity{}}
}

func (f *fakeActivityRepo) List(ctx context.Context) ([]models.Activity, error) {
	out := make([]models.Activity, 0, len(f.items))
	for _, a := range f.items {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (f *fakeActivityRepo) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (f *fakeActivityRepo) Insert(ctx context.Context, activity *models.Activity) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.seq++
	activity.ID = fmt.Sprintf("act-%d", f.seq)
	f.items[activity.ID] = *activity
	return nil
}

func (f *fakeActivityRepo) Update(ctx context.Context, activity *models.Activity) error {
	if _, ok := f.items[activity.ID]; !ok {
		return sql.ErrNoRows
	}
	f.items[activity.ID] = *activity
	return nil
}

func (f *fakeActivityRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.items, id)
	return nil
}

type memoryCache struct {
	entries     map[string]interface{}
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]interface{}{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw.([]byte), dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}
