package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/modera-shop/modera/config"
	"github.com/modera-shop/modera/pkg/logger"
)

// Manager owns the configured disks and picks the one uploads go to.
type Manager struct {
	mu      sync.RWMutex
	disks   map[string]Disk
	uploads string
	local   *LocalDisk
}

// NewManager always boots the local disk, boots S3 when a bucket is set and
// Cloudinary when its credentials are set. Cloudinary takes uploads when
// enabled; otherwise STORAGE_DISK picks.
func NewManager(ctx context.Context, s *config.Settings) *Manager {
	m := &Manager{disks: map[string]Disk{}, uploads: "local"}
	m.local = NewLocalDisk(s.LocalRoot)
	m.Register(m.local)

	if s.S3.Bucket != "" {
		d, err := NewS3Disk(ctx, s.S3)
		if err != nil {
			logger.Warn("storage: s3 disk disabled", "error", err)
		} else {
			m.Register(d)
		}
	}
	if _, ok := m.disks[s.Disk]; ok {
		m.uploads = s.Disk
	}
	if s.Cloudinary.Enabled() {
		d, err := NewCloudinaryDisk(s.Cloudinary)
		if err != nil {
			logger.Warn("storage: cloudinary disk disabled", "error", err)
		} else {
			m.Register(d)
			m.uploads = d.Name()
		}
	}
	return m
}

// NewManagerWith builds a manager around explicit disks. A nil uploads disk
// sends uploads to local.
func NewManagerWith(local *LocalDisk, uploads Disk) *Manager {
	m := &Manager{disks: map[string]Disk{}, local: local}
	m.Register(local)
	if uploads == nil {
		uploads = local
	}
	m.Register(uploads)
	m.uploads = uploads.Name()
	return m
}

func (m *Manager) Register(d Disk) {
	m.mu.Lock()
	m.disks[d.Name()] = d
	m.mu.Unlock()
}

func (m *Manager) Use(name string) (Disk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.disks[name]
	if !ok {
		return nil, fmt.Errorf("storage: disk %q is not configured", name)
	}
	return d, nil
}

// Uploads returns the disk new product images go to.
func (m *Manager) Uploads() Disk {
	d, _ := m.Use(m.uploads)
	return d
}

// Local returns the disk served under /images.
func (m *Manager) Local() *LocalDisk { return m.local }
