package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/baharkarakas/crowdfund-backend/internal/auth"
	"github.com/baharkarakas/crowdfund-backend/internal/config"
	"github.com/baharkarakas/crowdfund-backend/internal/models"
	"github.com/baharkarakas/crowdfund-backend/internal/notify"
	"github.com/baharkarakas/crowdfund-backend/internal/repository/memory"
)

type dispatched struct {
	msg    notify.Message
	policy notify.Policy
}

type fakeNotifier struct {
	mu      sync.Mutex
	calls   []dispatched
	failReq error
	dropBE  bool
}

func (f *fakeNotifier) Dispatch(_ context.Context, m notify.Message, p notify.Policy) (notify.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatched{m, p})
	if p == notify.Required {
		if f.failReq != nil {
			return notify.Dropped, f.failReq
		}
		return notify.Delivered, nil
	}
	if f.dropBE {
		return notify.Dropped, nil
	}
	return notify.Queued, nil
}

type fakeImages struct {
	uploaded []string
	deleted  []string
	err      error
	delErr   error
}

func (f *fakeImages) Upload(_ context.Context, key string, _ io.Reader, _ string) (models.ProjectImage, error) {
	if f.err != nil {
		return models.ProjectImage{}, f.err
	}
	f.uploaded = append(f.uploaded, key)
	return models.ProjectImage{URL: "https://img.test/" + key, ID: key}, nil
}

func (f *fakeImages) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return f.delErr
}

var errSMTP = errors.New("smtp down")

func testConfig() config.Config {
	return config.Config{
		Env:             "test",
		ClientURL:       "http://client.test",
		ConfirmTokenTTL: 3 * time.Hour,
		SessionTokenTTL: 60 * time.Hour,
		ResetTokenTTL:   time.Hour,
	}
}

func quietLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fixture struct {
	store  *memory.Store
	tokens *auth.TokenManager
	mail   *fakeNotifier
	users  *UserService
	budget *BudgetService
	images *fakeImages
	proj   *ProjectService
}

func newFixture() *fixture {
	st := memory.NewStore()
	tm := auth.NewTokenManager("test-secret", "test")
	mail := &fakeNotifier{}
	imgs := &fakeImages{}
	return &fixture{
		store:  st,
		tokens: tm,
		mail:   mail,
		users:  NewUserService(st, tm, mail, imgs, testConfig(), quietLog()),
		budget: NewBudgetService(st, false),
		images: imgs,
		proj:   NewProjectService(st, imgs, quietLog()),
	}
}
