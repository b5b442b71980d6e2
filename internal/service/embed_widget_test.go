// internal/service/embed_widget_test.go
package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/taskflowhq/taskflow/internal/domain"
	"github.com/taskflowhq/taskflow/internal/mocks"
	"github.com/taskflowhq/taskflow/internal/model"
)

type embedWidgetFixture struct {
	svc      *EmbedWidgetService
	widgets  *mocks.MockEmbedRepositoryIface
	projects *mocks.MockProjectRepositoryIface
}

func newEmbedWidgetFixture(ctrl *gomock.Controller) *embedWidgetFixture {
	widgets := mocks.NewMockEmbedRepositoryIface(ctrl)
	projects := mocks.NewMockProjectRepositoryIface(ctrl)
	return &embedWidgetFixture{
		svc:      NewEmbedWidgetService(widgets, projects),
		widgets:  widgets,
		projects: projects,
	}
}

func TestCreateWidgetManagerViewOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newEmbedWidgetFixture(ctrl)
	ac := memberCtx(uuid.New(), model.RoleManager)

	f.widgets.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, w *model.EmbedWidget) error {
			assert.Equal(t, ac.OrgID, w.OrgID)
			assert.Equal(t, model.PermViewOnly, w.Permissions)
			assert.True(t, w.IsActive)
			assert.Len(t, w.Token, 64)
			assert.Nil(t, w.TokenExpiresAt)
			return nil
		})

	widget, err := f.svc.Create(context.Background(), ac, CreateWidgetInput{
		Name:           "Team board",
		TargetType:     "MY_TASKS",
		ViewMode:       "LIST",
		AllowedDomains: []string{"example.com"},
	})
	assert.NoError(t, err)
	assert.Equal(t, model.TargetMyTasks, widget.TargetType)
}

func TestCreateWidgetMemberForbidden(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newEmbedWidgetFixture(ctrl)
	_, err := f.svc.Create(context.Background(), memberCtx(uuid.New(), model.RoleMember), CreateWidgetInput{
		Name:           "Nope",
		TargetType:     "MY_TASKS",
		ViewMode:       "LIST",
		AllowedDomains: []string{"example.com"},
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreateWidgetOperationsNeedsAdmin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newEmbedWidgetFixture(ctrl)

	_, err := f.svc.Create(context.Background(), memberCtx(uuid.New(), model.RoleManager), CreateWidgetInput{
		Name:           "Writable",
		TargetType:     "MY_TASKS",
		ViewMode:       "LIST",
		Permissions:    "OPERATIONS_ALLOWED",
		AllowedDomains: []string{"example.com"},
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	f.widgets.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	widget, err := f.svc.Create(context.Background(), memberCtx(uuid.New(), model.RoleAdmin), CreateWidgetInput{
		Name:           "Writable",
		TargetType:     "MY_TASKS",
		ViewMode:       "LIST",
		Permissions:    "OPERATIONS_ALLOWED",
		AllowedDomains: []string{"example.com"},
	})
	assert.NoError(t, err)
	assert.Equal(t, model.PermOperationsAllowed, widget.Permissions)
}

func TestCreateWidgetProjectTarget(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newEmbedWidgetFixture(ctrl)
	ac := memberCtx(uuid.New(), model.RoleManager)
	projectID := uuid.New()

	f.projects.EXPECT().FindByID(gomock.Any(), projectID).
		Return(&model.Project{ID: projectID, OrgID: ac.OrgID}, nil)
	f.widgets.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	widget, err := f.svc.Create(context.Background(), ac, CreateWidgetInput{
		Name:           "Project board",
		TargetType:     "PROJECT",
		TargetID:       &projectID,
		ViewMode:       "BOARD",
		AllowedDomains: []string{"example.com"},
	})
	assert.NoError(t, err)
	assert.Equal(t, &projectID, widget.TargetID)
}

func TestCreateWidgetProjectTargetCrossOrg(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newEmbedWidgetFixture(ctrl)
	projectID := uuid.New()

	f.projects.EXPECT().FindByID(gomock.Any(), projectID).
		Return(&model.Project{ID: projectID, OrgID: uuid.New()}, nil)

	_, err := f.svc.Create(context.Background(), memberCtx(uuid.New(), model.RoleManager), CreateWidgetInput{
		Name:           "Stolen board",
		TargetType:     "PROJECT",
		TargetID:       &projectID,
		ViewMode:       "BOARD",
		AllowedDomains: []string{"example.com"},
	})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestCreateWidgetProjectTargetNeedsID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newEmbedWidgetFixture(ctrl)
	_, err := f.svc.Create(context.Background(), memberCtx(uuid.New(), model.RoleManager), CreateWidgetInput{
		Name:           "Board",
		TargetType:     "PROJECT",
		ViewMode:       "BOARD",
		AllowedDomains: []string{"example.com"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateWidgetSavedFilterUnsupported(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newEmbedWidgetFixture(ctrl)
	_, err := f.svc.Create(context.Background(), memberCtx(uuid.New(), model.RoleAdmin), CreateWidgetInput{
		Name:           "Filtered",
		TargetType:     "SAVED_FILTER",
		ViewMode:       "LIST",
		AllowedDomains: []string{"example.com"},
	})
	assert.ErrorIs(t, err, domain.ErrSavedFilterUnsupported)
}

func TestCreateWidgetTokenTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newEmbedWidgetFixture(ctrl)
	f.widgets.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	widget, err := f.svc.Create(context.Background(), memberCtx(uuid.New(), model.RoleManager), CreateWidgetInput{
		Name:           "Expiring",
		TargetType:     "MY_TASKS",
		ViewMode:       "LIST",
		TokenTTLDays:   30,
		AllowedDomains: []string{"example.com"},
	})
	assert.NoError(t, err)
	assert.NotNil(t, widget.TokenExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *widget.TokenExpiresAt, time.Minute)
}

func TestListWidgetsRequiresManager(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newEmbedWidgetFixture(ctrl)
	orgID := uuid.New()

	// No FindByOrg expectation for the member: tokens must not leave storage.
	_, err := f.svc.List(context.Background(), memberCtx(orgID, model.RoleMember))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	f.widgets.EXPECT().FindByOrg(gomock.Any(), orgID).
		Return([]*model.EmbedWidget{{ID: uuid.New(), OrgID: orgID, Token: "tok"}}, nil)
	widgets, err := f.svc.List(context.Background(), memberCtx(orgID, model.RoleManager))
	assert.NoError(t, err)
	assert.Len(t, widgets, 1)
}

func TestGetWidgetRequiresManager(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newEmbedWidgetFixture(ctrl)
	_, err := f.svc.Get(context.Background(), memberCtx(uuid.New(), model.RoleMember), uuid.New())
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestGetWidgetCrossOrgLooksMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newEmbedWidgetFixture(ctrl)
	widgetID := uuid.New()

	f.widgets.EXPECT().FindByID(gomock.Any(), widgetID).
		Return(&model.EmbedWidget{ID: widgetID, OrgID: uuid.New()}, nil)

	_, err := f.svc.Get(context.Background(), memberCtx(uuid.New(), model.RoleAdmin), widgetID)
	assert.ErrorIs(t, err, domain.ErrWidgetNotFound)
}
