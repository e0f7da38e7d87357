package keyValStore

import (
	"errors"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/disk"
)

var (
	ErrNoPath         = errors.New("no path provided in configuration")
	ErrPathNotExist   = errors.New("path does not exist")
	ErrPathNotDir     = errors.New("path is not a directory")
	ErrNotEnoughSpace = errors.New("not enough space available on disk")
)

func (sc *StoreConfig) checkConfig() error {
	if len(sc.Paths) == 0 || sc.Paths[0] == "" {
		return ErrNoPath
	}

	path := sc.Paths[0] // Currently only the first path is utilized
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrPathNotExist, path)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrPathNotDir, path)
	}

	usage, err := disk.Usage(path)
	if err != nil {
		return fmt.Errorf("error reading disk usage of %s: %w", path, err)
	}

	availableSpaceInGB := usage.Free / (1024 * 1024 * 1024)
	if sc.MinimumFreeSpace > 0 && availableSpaceInGB < uint64(sc.MinimumFreeSpace) {
		return fmt.Errorf("%w: %d GB free, %d GB required", ErrNotEnoughSpace, availableSpaceInGB, sc.MinimumFreeSpace)
	}

	return nil
}
