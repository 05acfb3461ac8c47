// Package workspace prepares the directories agents work in.
package workspace

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sortedstartup/ztr/internal/errs"
)

// DirLayout is the time layout of workspace directory names.
const DirLayout = "20060102_150405"

// PrepareStarter copies the starter template src into a new
// <base>/output_<timestamp> directory and returns its path.
func PrepareStarter(src, base string, now time.Time) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", errs.Wrapf(err, "Starter template %q not found. Set starter-template in the settings.", src)
	}
	if !info.IsDir() {
		return "", errs.Wrapf(fmt.Errorf("%s is not a directory", src), "Starter template %q must be a directory.", src)
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("create outputs directory: %w", err)
	}

	dst := filepath.Join(base, "output_"+now.Format(DirLayout))
	if _, err := os.Stat(dst); err == nil {
		return "", errs.Wrapf(fmt.Errorf("%s already exists", dst), "Workspace %q already exists, try again in a second.", dst)
	}
	if err := copyDir(src, dst); err != nil {
		_ = os.RemoveAll(dst)
		return "", fmt.Errorf("copy starter template: %w", err)
	}
	return dst, nil
}

// CopyInto copies file into dir, keeping its base name, and returns the new
// path.
func CopyInto(file, dir string) (string, error) {
	info, err := os.Stat(file)
	if err != nil {
		return "", errs.Wrapf(err, "File %q does not exist.", file)
	}
	if info.IsDir() {
		return "", errs.Wrapf(fmt.Errorf("%s is a directory", file), "%q is a directory, expected a file.", file)
	}
	dst := filepath.Join(dir, filepath.Base(file))
	if err := copyFile(file, dst, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("copy %s: %w", file, err)
	}
	return dst, nil
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err //nolint:wrapcheck
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err //nolint:wrapcheck
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700) //nolint:wrapcheck
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err //nolint:wrapcheck
			}
			return os.Symlink(link, target) //nolint:wrapcheck
		case !d.Type().IsRegular():
			return nil
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err //nolint:wrapcheck
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err //nolint:wrapcheck
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err //nolint:wrapcheck
	}
	if err := out.Close(); err != nil {
		return err //nolint:wrapcheck
	}
	return os.Chmod(dst, mode) //nolint:wrapcheck
}
