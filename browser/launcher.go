package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/cascade/models"
)

// LaunchOptions control how rod starts a browser process.
type LaunchOptions struct {
	// Headless controls whether the browser runs headless.
	Headless bool

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool

	// Bin overrides the browser binary path for every engine.
	Bin string
}

// NewRodLauncher returns a LaunchFunc that starts Chromium-family browsers
// through rod. Engines: "chromium" (rod-managed binary) and "chrome"
// (system installation).
//
// The process outlives ctx: launcher contexts kill the browser when done,
// and pooled browsers serve many attempts.
func NewRodLauncher(opts LaunchOptions) LaunchFunc {
	return func(ctx context.Context, engine string) (Browser, error) {
		if err := ctx.Err(); err != nil {
			return nil, models.NewScrapeError(models.ErrCodeTimeout, "browser launch cancelled", err)
		}
		l := launcher.New().
			Headless(opts.Headless).
			NoSandbox(opts.NoSandbox)

		switch {
		case opts.Bin != "":
			l = l.Bin(opts.Bin)
		case engine == "chrome":
			bin, ok := launcher.LookPath()
			if !ok {
				return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "no system chrome installation found", nil)
			}
			l = l.Bin(bin)
		case engine == DefaultEngine:
		default:
			return nil, models.NewScrapeError(models.ErrCodeConfig, fmt.Sprintf("unsupported browser engine %q", engine), nil)
		}

		// ── Stealth flags ────────────────────────────────────────────────
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
		l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
		l.Set(flags.Flag("disable-popup-blocking"))
		l.Set(flags.Flag("disable-renderer-backgrounding"))
		l.Set(flags.Flag("disable-background-timer-throttling"))
		l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
		l.Set(flags.Flag("disable-component-update"))
		l.Set(flags.Flag("disable-default-apps"))
		l.Set(flags.Flag("disable-dev-shm-usage"))
		l.Set(flags.Flag("disable-extensions"))
		l.Set(flags.Flag("no-first-run"))

		controlURL, err := l.Launch()
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
		}

		b := rod.New().ControlURL(controlURL)
		if err := b.Connect(); err != nil {
			l.Kill()
			return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
		}
		return &rodBrowser{browser: b, launcher: l}, nil
	}
}
