package updater

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/afero"
)

// InstallType is how the running instance was installed.
type InstallType int

const (
	PlainSource InstallType = iota
	VcsCheckout
	WindowsBinary
	MacApp
)

var installTypeNames = map[InstallType]string{
	WindowsBinary: "Windows Binary",
	MacApp:        "Mac App",
	VcsCheckout:   "Git",
	PlainSource:   "Source",
}

func (t InstallType) String() string {
	if name, ok := installTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Environment holds everything Detect looks at.
type Environment struct {
	// PackagedMacApp is set when running from inside an .app bundle.
	PackagedMacApp bool
	OS             string
	AppPath        string
	Fs             afero.Fs
}

// Detect classifies the installation. The checks run in a fixed order:
// packaged Mac app, Windows, a .git directory under AppPath, plain source.
func Detect(env Environment) InstallType {
	if env.PackagedMacApp {
		return MacApp
	}
	if env.OS == "windows" {
		return WindowsBinary
	}
	fs := env.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if env.AppPath != "" {
		if ok, err := afero.IsDir(fs, filepath.Join(env.AppPath, ".git")); err == nil && ok {
			return VcsCheckout
		}
	}
	return PlainSource
}

// CurrentEnvironment describes the running process rooted at appPath.
func CurrentEnvironment(appPath string) Environment {
	env := Environment{
		OS:      runtime.GOOS,
		AppPath: appPath,
		Fs:      afero.NewOsFs(),
	}
	if exe, err := os.Executable(); err == nil {
		env.PackagedMacApp = isMacBundle(exe)
	}
	return env
}

func isMacBundle(exe string) bool {
	return strings.Contains(filepath.ToSlash(exe), ".app/Contents/MacOS/")
}
