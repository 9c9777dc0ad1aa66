package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"nexus-backend/internal/task/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTasks struct {
	byID      map[string]*domain.Task
	failTitle string
}

func newMemTasks() *memTasks { return &memTasks{byID: map[string]*domain.Task{}} }

func (m *memTasks) Create(task *domain.Task) error {
	if task.Title == m.failTitle {
		return errors.New("insert failed")
	}
	m.byID[task.ID] = task
	return nil
}

func (m *memTasks) FindByID(id string) (*domain.Task, error) { return m.byID[id], nil }

func (m *memTasks) FindByUserID(userID string, status *domain.TaskStatus, limit, offset int) ([]*domain.Task, int64, error) {
	var out []*domain.Task
	for _, t := range m.byID {
		if t.UserID == userID && (status == nil || t.Status == *status) {
			out = append(out, t)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memTasks) Update(task *domain.Task) error {
	m.byID[task.ID] = task
	return nil
}

func (m *memTasks) Delete(id string) error {
	delete(m.byID, id)
	return nil
}

func (m *memTasks) FindPendingReminders(now time.Time) ([]*domain.Task, error) { return nil, nil }
func (m *memTasks) MarkReminderSent(id string) error                          { return nil }

type stubFetcher struct{ err error }

func (s stubFetcher) GetLatestMessage(userID, threadID string) (string, string, string, error) {
	return "Q3 report", "Please send the Q3 report by Friday and book the venue.", "boss@example.com", s.err
}

type stubExtractor struct{ out []domain.TaskExtraction }

func (s stubExtractor) ExtractTasks(ctx context.Context, subject, body, sender string) ([]domain.TaskExtraction, error) {
	return s.out, nil
}

func strPtr(s string) *string { return &s }

func TestCreateTaskParsesDatesAndPriority(t *testing.T) {
	repo := newMemTasks()
	uc := NewTaskUsecase(repo)

	_, err := uc.CreateTask("u1", "", "", nil, nil, "")
	assert.ErrorIs(t, err, ErrTitleRequired)

	task, err := uc.CreateTask("u1", "Ship it", "", strPtr("2026-10-20"), strPtr("2026-10-19T08:00:00Z"), "urgent")
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityHigh, task.Priority)
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, 20, task.DueDate.Day())
	require.NotNil(t, task.ReminderAt)
	assert.Equal(t, 8, task.ReminderAt.Hour())
}

func TestTaskOwnershipIsEnforced(t *testing.T) {
	repo := newMemTasks()
	uc := NewTaskUsecase(repo)
	task, err := uc.CreateTask("u1", "Mine", "", nil, nil, "low")
	require.NoError(t, err)

	_, err = uc.GetTaskByID("u2", task.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = uc.GetTaskByID("u1", "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.ErrorIs(t, uc.DeleteTask("u2", task.ID), ErrUnauthorized)

	updated, err := uc.UpdateTask("u1", task.ID, TaskUpdateRequest{Status: strPtr("completed"), DueDate: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, updated.Status)
	assert.Nil(t, updated.DueDate)

	_, err = uc.UpdateTask("u1", task.ID, TaskUpdateRequest{Status: strPtr("archived")})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	done, err := uc.UpdateTask("u1", task.ID, TaskUpdateRequest{Status: strPtr("done")})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, done.Status)
}

func TestUpdateReminderRearms(t *testing.T) {
	repo := newMemTasks()
	uc := NewTaskUsecase(repo)
	task, err := uc.CreateTask("u1", "Call", "", nil, strPtr("2026-10-19T08:00:00Z"), "")
	require.NoError(t, err)
	repo.byID[task.ID].ReminderSent = true

	updated, err := uc.UpdateTask("u1", task.ID, TaskUpdateRequest{ReminderAt: strPtr("2026-10-19T09:00:00Z")})
	require.NoError(t, err)
	assert.False(t, updated.ReminderSent)
	assert.Equal(t, 9, updated.ReminderAt.Hour())
}

func TestExtractTasksFromThread(t *testing.T) {
	repo := newMemTasks()
	repo.failTitle = "Book the venue"
	uc := NewTaskUsecase(repo)

	_, err := uc.ExtractTasksFromThread(context.Background(), "u1", "t1")
	assert.Error(t, err)

	due := time.Now().Add(48 * time.Hour)
	uc.SetTaskExtractor(stubExtractor{out: []domain.TaskExtraction{
		{Title: "Send Q3 report", DueDate: &due, Priority: domain.PriorityHigh},
		{Title: ""},
		{Title: "Book the venue"},
	}})
	uc.SetMessageFetcher(stubFetcher{})

	tasks, err := uc.ExtractTasksFromThread(context.Background(), "u1", "t1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].SourceThreadID)
	require.NotNil(t, tasks[0].ReminderAt)
	assert.Equal(t, due.Add(-time.Hour), *tasks[0].ReminderAt)

	uc.SetMessageFetcher(stubFetcher{err: errors.New("thread not found")})
	_, err = uc.ExtractTasksFromThread(context.Background(), "u1", "t1")
	assert.Error(t, err)
}
