package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// installCommandTimeout bounds one package-manager invocation. Package
// managers can resolve large dependency trees on slow mirrors.
const installCommandTimeout = 15 * time.Minute

// installOption is one package-manager route for the current OS.
type installOption struct {
	manager  string
	commands [][]string
}

// installOptions returns package-manager candidates for the platform, in
// preference order. Only managers present on the search path are tried.
func installOptions(goos string) []installOption {
	switch goos {
	case "windows":
		return []installOption{
			{manager: "winget", commands: [][]string{
				{"winget", "install", "--id", "Gyan.FFmpeg", "--exact",
					"--accept-source-agreements", "--accept-package-agreements"},
			}},
			{manager: "choco", commands: [][]string{
				{"choco", "install", "ffmpeg", "-y"},
			}},
			{manager: "scoop", commands: [][]string{
				{"scoop", "install", "ffmpeg"},
			}},
		}
	case "darwin":
		return []installOption{
			{manager: "brew", commands: [][]string{
				{"brew", "install", "ffmpeg"},
			}},
		}
	default:
		return []installOption{
			{manager: "apt-get", commands: [][]string{
				{"apt-get", "update"},
				{"apt-get", "install", "-y", "ffmpeg"},
			}},
			{manager: "dnf", commands: [][]string{
				{"dnf", "install", "-y", "ffmpeg"},
			}},
			{manager: "pacman", commands: [][]string{
				{"pacman", "-Sy", "--noconfirm", "ffmpeg"},
			}},
			{manager: "brew", commands: [][]string{
				{"brew", "install", "ffmpeg"},
			}},
		}
	}
}

// installWithPackageManager tries each available package manager until one
// succeeds. Returns an error when no manager is available or all fail.
func (b *Bootstrapper) installWithPackageManager(ctx context.Context) error {
	var lastErr error
	tried := 0

	for _, opt := range installOptions(b.goos) {
		if _, err := b.env.LookPath(opt.manager); err != nil {
			continue
		}
		tried++
		fmt.Fprintf(b.stderr, "installing ffmpeg with %s...\n", opt.manager)

		if err := b.runInstallCommands(ctx, opt.commands); err != nil {
			lastErr = fmt.Errorf("%s: %w", opt.manager, err)
			continue
		}
		return nil
	}

	if tried == 0 {
		return errors.New("no supported package manager found")
	}
	return lastErr
}

// runInstallCommands runs one manager's command sequence, stopping at the
// first failure.
func (b *Bootstrapper) runInstallCommands(ctx context.Context, commands [][]string) error {
	for _, argv := range commands {
		ictx, cancel := context.WithTimeout(ctx, installCommandTimeout)
		output, err := b.cmd.CombinedOutput(ictx, argv[0], argv[1:])
		cancel()
		if err != nil {
			return fmt.Errorf("%v: %w: %s", argv, err, tail(string(output), 400))
		}
	}
	return nil
}

// tail returns the last n bytes of s for diagnostics.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
