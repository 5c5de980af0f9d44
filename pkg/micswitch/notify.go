package micswitch

import (
	"os"
	"path/filepath"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"github.com/stalexteam/micswitch/pkg/micswitch/icon"
	"github.com/stalexteam/micswitch/pkg/micswitch/util"
)

// Notifier provides generic notification sending
type Notifier interface {
	Notify(title string, message string)
}

// ToastNotifier provides toast notifications
type ToastNotifier struct {
	logger *zap.SugaredLogger
}

// NewToastNotifier creates a new ToastNotifier
func NewToastNotifier(logger *zap.SugaredLogger) (*ToastNotifier, error) {
	logger = logger.Named("notifier")
	tn := &ToastNotifier{logger: logger}

	logger.Debug("Created toast notifier instance")

	return tn, nil
}

// Notify sends a toast notification (or falls back to other types of notification for older systems)
func (tn *ToastNotifier) Notify(title string, message string) {

	// we need to unpack the app icon somewhere, since the notification APIs want a file path
	appIconPath := filepath.Join(os.TempDir(), "micswitch.png")

	if !util.FileExists(appIconPath) {
		tn.logger.Debugw("Micswitch icon file missing, creating", "path", appIconPath)

		if err := os.WriteFile(appIconPath, icon.Mic, 0o644); err != nil {
			tn.logger.Errorw("Failed to write app icon to temp dir", "error", err)
		}
	}

	tn.logger.Infow("Sending toast notification", "title", title, "message", message)

	if err := beeep.Notify(title, message, appIconPath); err != nil {
		tn.logger.Errorw("Failed to send toast notification", "error", err)
	}
}
