package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nimburion/docmanager/pkg/version"
)

func TestRun(t *testing.T) {
	a := newTestApp(t)

	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	body := make(chan string, 1)
	errChan := make(chan error, 1)
	go func() {
		errChan <- Run(ctx, RunOptions{
			App: a,
			StartupHooks: []LifecycleHook{{Name: "seed", Fn: func(context.Context) error {
				calls = append(calls, "startup")
				return nil
			}}},
			ShutdownHooks: []LifecycleHook{{Name: "flush", Fn: func(context.Context) error {
				calls = append(calls, "shutdown")
				return nil
			}}},
			OnListening: func(s *Server) {
				resp, err := http.Get("http://" + s.Addr() + "/collections/organizations/count")
				if err != nil {
					body <- err.Error()
					return
				}
				defer resp.Body.Close()
				b, _ := io.ReadAll(resp.Body)
				body <- string(b)
			},
		})
	}()

	select {
	case got := <-body:
		if !strings.Contains(got, `"count":0`) {
			t.Errorf("unexpected response %s", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not answer")
	}
	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return")
	}
	if strings.Join(calls, ",") != "startup,shutdown" {
		t.Errorf("unexpected hook order %v", calls)
	}
}

func TestRun_StartupHookFailure(t *testing.T) {
	cause := errors.New("fixtures missing")
	err := Run(context.Background(), RunOptions{
		App:          newTestApp(t),
		StartupHooks: []LifecycleHook{{Fn: func(context.Context) error { return cause }}},
	})
	if !errors.Is(err, cause) || !strings.Contains(err.Error(), `"unnamed"`) {
		t.Errorf("expected wrapped hook error, got %v", err)
	}
}

func TestRun_RequiresApp(t *testing.T) {
	if err := Run(context.Background(), RunOptions{}); err == nil {
		t.Error("expected error without app")
	}
}

func TestRunShutdownHooks_CollectsErrors(t *testing.T) {
	a := newTestApp(t)
	err := runShutdownHooks(a.Logger, []LifecycleHook{
		{Name: "one", Fn: func(context.Context) error { return errors.New("one failed") }},
		{Name: "two", Fn: func(context.Context) error { return nil }},
		{Name: "three", Fn: func(context.Context) error { return errors.New("three failed") }},
	}, time.Second)
	if err == nil || !strings.Contains(err.Error(), "one failed") || !strings.Contains(err.Error(), "three failed") {
		t.Errorf("expected both failures, got %v", err)
	}
}

func TestVersionInfo(t *testing.T) {
	old := version.AppVersion
	defer func() { version.AppVersion = old }()

	version.AppVersion = version.DevelopmentVersion
	if info := versionInfo("crm", "1.4.0"); info.Version != "1.4.0" || info.Service != "crm" {
		t.Errorf("configured version must apply to dev builds, got %+v", info)
	}
	version.AppVersion = "v2.0.0"
	if info := versionInfo("crm", "1.4.0"); info.Version != "v2.0.0" {
		t.Errorf("build version must win, got %+v", info)
	}
}
