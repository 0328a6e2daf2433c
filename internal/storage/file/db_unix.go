//go:build !windows

package file

import (
	"fmt"

	"golang.org/x/sys/unix"

	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

// Base on: https://github.com/etcd-io/bbolt/blob/main/bolt_unix.go

func mmap(fm *FileManager, size int64) error {
	if fm.File == nil {
		return util.ErrFileManagerNil
	}
	if size <= 0 {
		return util.ErrInvalidInitialPages
	}
	if size > util.MaxMapSize {
		return util.ErrMaxMapSizeExceeded
	}

	if err := fm.File.Truncate(size); err != nil {
		return fmt.Errorf("truncate to %d: %w", size, err)
	}
	b, err := unix.Mmap(int(fm.File.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap: %w", err)
	}
	fm.Data = b
	fm.Size = size
	return nil
}

// munmap unmaps a pointer from a file.
func munmap(fm *FileManager) error {
	if fm.File == nil {
		return util.ErrFileManagerNil
	}
	if fm.Data == nil {
		return nil
	}

	var err error
	if e := unix.Munmap(fm.Data); e != nil {
		err = fmt.Errorf("unmap: %w", e)
	}
	fm.Data = nil
	fm.Size = 0
	return err
}

func msync(fm *FileManager) error {
	if fm.Data == nil {
		return nil
	}
	return unix.Msync(fm.Data, unix.MS_SYNC)
}
