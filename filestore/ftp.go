package filestore

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPStore uploads attachments to an FTP server. A connection is opened per
// operation since ftp.ServerConn is not safe for concurrent use.
type FTPStore struct {
	host     string
	port     string
	user     string
	password string
	dir      string
	baseURL  string
}

func NewFTPStore(host, port, user, password, dir, baseURL string) *FTPStore {
	return &FTPStore{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		dir:      dir,
		baseURL:  baseURL,
	}
}

func (s *FTPStore) connect(ctx context.Context) (*ftp.ServerConn, error) {
	addr := s.host + ":" + s.port
	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to FTP: %w", err)
	}

	if err := conn.Login(s.user, s.password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("failed to login to FTP: %w", err)
	}
	return conn, nil
}

func (s *FTPStore) remotePath(key string) string {
	if s.dir == "" {
		return key
	}
	return path.Join(s.dir, key)
}

func (s *FTPStore) Upload(ctx context.Context, file FileUpload) (StoredFile, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return StoredFile{}, err
	}
	defer conn.Quit()

	key := newKey(file.FileName)
	if err := conn.Stor(s.remotePath(key), file.Content); err != nil {
		return StoredFile{}, fmt.Errorf("failed to upload file: %w", err)
	}

	return StoredFile{URL: joinURL(s.baseURL, key), PublicID: key}, nil
}

func (s *FTPStore) Delete(ctx context.Context, publicID string) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit()

	if err := conn.Delete(s.remotePath(publicID)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
