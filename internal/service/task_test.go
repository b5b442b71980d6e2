// internal/service/task_test.go
package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/mocks"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/rbac"
)

type taskServiceFixture struct {
	svc         *TaskService
	tasks       *mocks.MockTaskRepositoryIface
	projects    *mocks.MockProjectRepositoryIface
	memberships *mocks.MockMembershipRepositoryIface
}

func newTaskServiceFixture(ctrl *gomock.Controller) *taskServiceFixture {
	tasks := mocks.NewMockTaskRepositoryIface(ctrl)
	projects := mocks.NewMockProjectRepositoryIface(ctrl)
	memberships := mocks.NewMockMembershipRepositoryIface(ctrl)
	checker := rbac.NewChecker(tasks, projects)
	return &taskServiceFixture{
		svc:         NewTaskService(tasks, projects, memberships, checker),
		tasks:       tasks,
		projects:    projects,
		memberships: memberships,
	}
}

func memberCtx(orgID uuid.UUID, role model.Role) *auth.Context {
	return &auth.Context{
		User:  model.UserRef{ID: uuid.New(), Name: "Someone"},
		OrgID: orgID,
		Role:  role,
	}
}

func TestCreateTaskDefaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newTaskServiceFixture(ctrl)
	ac := memberCtx(uuid.New(), model.RoleMember)

	f.tasks.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, task *model.Task) error {
			task.ID = uuid.New()
			return nil
		})

	task, err := f.svc.Create(context.Background(), ac, CreateTaskInput{Title: "Write release notes"})
	assert.NoError(t, err)
	assert.Equal(t, ac.OrgID, task.OrgID)
	assert.Equal(t, model.TaskTodo, task.Status)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Nil(t, task.CompletedAt)
}

func TestCreateTaskCompletedSetsTimestamp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newTaskServiceFixture(ctrl)
	ac := memberCtx(uuid.New(), model.RoleManager)

	f.tasks.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	task, err := f.svc.Create(context.Background(), ac, CreateTaskInput{
		Title:  "Retro notes",
		Status: "COMPLETED",
	})
	assert.NoError(t, err)
	assert.NotNil(t, task.CompletedAt)
	assert.WithinDuration(t, time.Now(), *task.CompletedAt, time.Minute)
}

func TestCreateTaskRejectsCrossOrgProject(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newTaskServiceFixture(ctrl)
	ac := memberCtx(uuid.New(), model.RoleMember)
	projectID := uuid.New()

	f.projects.EXPECT().FindByID(gomock.Any(), projectID).
		Return(&model.Project{ID: projectID, OrgID: uuid.New()}, nil)

	_, err := f.svc.Create(context.Background(), ac, CreateTaskInput{
		Title:     "Sneaky",
		ProjectID: &projectID,
	})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestCreateTaskRejectsForeignAssignee(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newTaskServiceFixture(ctrl)
	ac := memberCtx(uuid.New(), model.RoleMember)
	assignee := uuid.New()

	f.memberships.EXPECT().FindActiveByUserAndOrg(gomock.Any(), assignee, ac.OrgID).
		Return(nil, domain.ErrNoMembership)

	_, err := f.svc.Create(context.Background(), ac, CreateTaskInput{
		Title:      "Delegate",
		AssigneeID: &assignee,
	})
	assert.ErrorIs(t, err, domain.ErrAssigneeNotInOrg)
}

func TestCreateTaskRejectsUnknownStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newTaskServiceFixture(ctrl)
	_, err := f.svc.Create(context.Background(), memberCtx(uuid.New(), model.RoleMember), CreateTaskInput{
		Title:  "x",
		Status: "DONE-ISH",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetTaskCrossOrgLooksMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newTaskServiceFixture(ctrl)
	ac := memberCtx(uuid.New(), model.RoleAdmin)
	taskID := uuid.New()

	f.tasks.EXPECT().FindByID(gomock.Any(), taskID).
		Return(&model.Task{ID: taskID, OrgID: uuid.New()}, nil)

	_, err := f.svc.Get(context.Background(), ac, taskID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestUpdateTaskCompletionTransitions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newTaskServiceFixture(ctrl)
	ac := memberCtx(uuid.New(), model.RoleManager)
	taskID := uuid.New()

	// Entering COMPLETED stamps the time.
	f.tasks.EXPECT().FindByID(gomock.Any(), taskID).
		Return(&model.Task{ID: taskID, OrgID: ac.OrgID, Title: "t", Status: model.TaskInProgress}, nil)
	f.tasks.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

	status := "COMPLETED"
	task, err := f.svc.Update(context.Background(), ac, taskID, UpdateTaskInput{Status: &status})
	assert.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, task.Status)
	assert.NotNil(t, task.CompletedAt)

	// Leaving COMPLETED clears it.
	done := time.Now().Add(-time.Hour)
	f.tasks.EXPECT().FindByID(gomock.Any(), taskID).
		Return(&model.Task{ID: taskID, OrgID: ac.OrgID, Title: "t", Status: model.TaskCompleted, CompletedAt: &done}, nil)
	f.tasks.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

	status = "IN_PROGRESS"
	task, err = f.svc.Update(context.Background(), ac, taskID, UpdateTaskInput{Status: &status})
	assert.NoError(t, err)
	assert.Equal(t, model.TaskInProgress, task.Status)
	assert.Nil(t, task.CompletedAt)
}

func TestUpdateTaskMemberNeedsOwnership(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newTaskServiceFixture(ctrl)
	ac := memberCtx(uuid.New(), model.RoleMember)
	taskID := uuid.New()
	otherUser := uuid.New()

	f.tasks.EXPECT().FindByID(gomock.Any(), taskID).
		Return(&model.Task{ID: taskID, OrgID: ac.OrgID, AssigneeID: &otherUser}, nil)

	title := "New title"
	_, err := f.svc.Update(context.Background(), ac, taskID, UpdateTaskInput{Title: &title})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdateTaskCrossOrgLooksMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newTaskServiceFixture(ctrl)
	ac := memberCtx(uuid.New(), model.RoleMember)
	taskID := uuid.New()

	f.tasks.EXPECT().FindByID(gomock.Any(), taskID).
		Return(&model.Task{ID: taskID, OrgID: uuid.New()}, nil)

	title := "New title"
	_, err := f.svc.Update(context.Background(), ac, taskID, UpdateTaskInput{Title: &title})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestDeleteTask(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newTaskServiceFixture(ctrl)
	ac := memberCtx(uuid.New(), model.RoleManager)
	taskID := uuid.New()

	f.tasks.EXPECT().FindByID(gomock.Any(), taskID).
		Return(&model.Task{ID: taskID, OrgID: ac.OrgID}, nil)
	f.tasks.EXPECT().Delete(gomock.Any(), taskID).Return(nil)

	assert.NoError(t, f.svc.Delete(context.Background(), ac, taskID))
}

func TestListTasksRejectsUnknownStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newTaskServiceFixture(ctrl)
	_, _, err := f.svc.List(context.Background(), memberCtx(uuid.New(), model.RoleMember), ListTasksInput{Status: "WAT"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
