package capture

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func captureThroughSession(t *testing.T, engine *fakeEngine, url, size, element string) ([]byte, error) {
	t.Helper()

	r, err := NewScreenshotRequest(url, size, element)
	if err != nil {
		return nil, err
	}

	launcher := &Launcher{Engine: engine}
	composer := &Composer{}

	var buffer []byte
	err = launcher.WithSession(context.Background(), func(ctx context.Context, s *Session) error {
		b, err := composer.Capture(ctx, s.Page, r)
		buffer = b
		return err
	})
	return buffer, err
}

func TestComposer_Capture(t *testing.T) {
	t.Run("FullPageWithDefaultViewport", func(t *testing.T) {
		engine := &fakeEngine{}

		buffer, err := captureThroughSession(t, engine, "https://example.com", "", "")
		if err != nil {
			t.Fatal(err)
		}
		if len(buffer) == 0 {
			t.Error("expected a non-empty buffer")
		}

		page := engine.pages[0]
		if diff := cmp.Diff(&Viewport{Width: 1280, Height: 1024, DeviceScaleFactor: 2}, page.viewport); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]ScreenshotOptions{{FullPage: true}}, page.screenshots); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"https://example.com"}, page.navigated); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if launched, closed := engine.counts(); launched != 1 || closed != 1 {
			t.Errorf("expected launched=1 closed=1, got launched=%d closed=%d", launched, closed)
		}
	})

	t.Run("FixedRegion", func(t *testing.T) {
		engine := &fakeEngine{}

		if _, err := captureThroughSession(t, engine, "https://example.com", "800,600", ""); err != nil {
			t.Fatal(err)
		}

		page := engine.pages[0]
		if diff := cmp.Diff(&Viewport{Width: 800, Height: 600, DeviceScaleFactor: 2}, page.viewport); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		want := []ScreenshotOptions{{
			FullPage: false,
			Clip:     &Clip{X: 0, Y: 0, Width: 800, Height: 600},
		}}
		if diff := cmp.Diff(want, page.screenshots); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("MalformedSizeOpensNoSession", func(t *testing.T) {
		for _, size := range []string{"abc,600", "800,"} {
			engine := &fakeEngine{}

			_, err := captureThroughSession(t, engine, "https://example.com", size, "")
			if !errors.Is(err, ErrInputRejected) {
				t.Errorf("%s: expected ErrInputRejected, got %v", size, err)
			}
			if launched, _ := engine.counts(); launched != 0 {
				t.Errorf("%s: expected no launch, got %d", size, launched)
			}
		}
	})

	t.Run("Element", func(t *testing.T) {
		engine := &fakeEngine{newPage: func() (*fakePage, error) {
			return &fakePage{elements: map[string][]byte{"#logo": []byte("\x89PNG logo")}}, nil
		}}

		buffer, err := captureThroughSession(t, engine, "https://example.com", "", "#logo")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]byte("\x89PNG logo"), buffer); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if len(engine.pages[0].screenshots) != 0 {
			t.Error("expected no page screenshot for an element capture")
		}
	})

	t.Run("ElementNotFound", func(t *testing.T) {
		engine := &fakeEngine{}

		_, err := captureThroughSession(t, engine, "https://example.com", "", "#missing")
		if !errors.Is(err, ErrElementNotFound) {
			t.Fatalf("expected ErrElementNotFound, got %v", err)
		}
		if diff := cmp.Diff("Element #missing not found", err.Error()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"https://example.com"}, engine.pages[0].navigated); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if _, closed := engine.counts(); closed != 1 {
			t.Errorf("expected closed=1, got %d", closed)
		}
	})

	t.Run("NavigationFailure", func(t *testing.T) {
		engine := &fakeEngine{newPage: func() (*fakePage, error) {
			return &fakePage{gotoErr: errors.New("Timeout 30000ms exceeded")}, nil
		}}

		_, err := captureThroughSession(t, engine, "https://example.com", "", "")
		if !errors.Is(err, ErrCaptureFailed) {
			t.Fatalf("expected ErrCaptureFailed, got %v", err)
		}
		if diff := cmp.Diff("failed to navigate to https://example.com: Timeout 30000ms exceeded", err.Error()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if _, closed := engine.counts(); closed != 1 {
			t.Errorf("expected closed=1, got %d", closed)
		}
	})

	t.Run("ScreenshotFailure", func(t *testing.T) {
		engine := &fakeEngine{newPage: func() (*fakePage, error) {
			return &fakePage{shotErr: errors.New("render error")}, nil
		}}

		_, err := captureThroughSession(t, engine, "https://example.com", "", "")
		if !errors.Is(err, ErrCaptureFailed) {
			t.Fatalf("expected ErrCaptureFailed, got %v", err)
		}
		if _, closed := engine.counts(); closed != 1 {
			t.Errorf("expected closed=1, got %d", closed)
		}
	})
}
