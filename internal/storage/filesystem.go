package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Filesystem keeps exports below a directory. Every path is resolved with
// openat2(RESOLVE_IN_ROOT) against the directory handle, so ".." and
// symlinks cannot leave it.
type Filesystem struct {
	dir string
	fd  int
}

func openFilesystem(dir string) (*Filesystem, error) {
	fd, err := unix.Open(dir, unix.O_DIRECTORY|unix.O_PATH|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: dir, Err: err}
	}
	return &Filesystem{dir: dir, fd: fd}, nil
}

func (f *Filesystem) Close() error {
	return unix.Close(f.fd)
}

func (f *Filesystem) Open(name string) (File, error) {
	return f.open(name, unix.O_RDONLY, 0)
}

func (f *Filesystem) Create(name string) (File, error) {
	return f.open(name, unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, 0o644)
}

func (f *Filesystem) open(name string, flags int, perm fs.FileMode) (File, error) {
	fd, err := f.resolve(name, flags, perm)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return os.NewFile(uintptr(fd), filepath.Join(f.dir, name)), nil
}

// resolve opens name beneath the root directory.
func (f *Filesystem) resolve(name string, flags int, perm fs.FileMode) (int, error) {
	how := unix.OpenHow{
		Flags:   uint64(flags) | unix.O_CLOEXEC,
		Mode:    uint64(perm.Perm()),
		Resolve: unix.RESOLVE_IN_ROOT,
	}
	for {
		fd, err := unix.Openat2(f.fd, name, &how)
		// EINTR: golang/go#11180, EAGAIN: a rename raced the lookup
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			continue
		}
		return fd, err
	}
}

// parent returns a handle on the directory holding name and the final
// path element. The *at syscalls below have no RESOLVE_IN_ROOT, so only
// the last element is handed to them.
func (f *Filesystem) parent(name string) (int, string, error) {
	clean := filepath.Clean(name)
	base := filepath.Base(clean)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return -1, "", unix.EINVAL
	}
	fd, err := f.resolve(filepath.Dir(clean), unix.O_DIRECTORY|unix.O_PATH, 0)
	if err != nil {
		return -1, "", err
	}
	return fd, base, nil
}

func (f *Filesystem) mkdir(name string, perm fs.FileMode) error {
	dirfd, base, err := f.parent(name)
	if err != nil {
		return &fs.PathError{Op: "mkdir", Path: name, Err: err}
	}
	defer unix.Close(dirfd)
	if err := unix.Mkdirat(dirfd, base, uint32(perm.Perm())); err != nil {
		return &fs.PathError{Op: "mkdir", Path: name, Err: err}
	}
	return nil
}

func (f *Filesystem) MkdirAll(name string, perm fs.FileMode) error {
	var dir string
	for _, elem := range strings.Split(filepath.Clean(name), string(filepath.Separator)) {
		// after Clean, ".." only leads the path and resolves to the root
		if elem == "" || elem == "." || elem == ".." {
			continue
		}
		dir = filepath.Join(dir, elem)
		if err := f.mkdir(dir, perm); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

// Remove deletes a file or an empty directory. Missing names report
// fs.ErrNotExist.
func (f *Filesystem) Remove(name string) error {
	dirfd, base, err := f.parent(name)
	if err != nil {
		return &fs.PathError{Op: "remove", Path: name, Err: err}
	}
	defer unix.Close(dirfd)

	err = unix.Unlinkat(dirfd, base, 0)
	if errors.Is(err, unix.EISDIR) {
		err = unix.Unlinkat(dirfd, base, unix.AT_REMOVEDIR)
	}
	if err != nil {
		return &fs.PathError{Op: "remove", Path: name, Err: err}
	}
	return nil
}

// Sub opens dir beneath the root as a new Filesystem. The caller closes it.
func (f *Filesystem) Sub(dir string) (Storage, error) {
	fd, err := f.resolve(dir, unix.O_DIRECTORY|unix.O_PATH, 0)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: dir, Err: err}
	}
	return &Filesystem{dir: filepath.Join(f.dir, dir), fd: fd}, nil
}
