package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/omenezes/aula-planner-api/pkg/config"
)

// BackupFile describes one stored backup object.
type BackupFile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedTime time.Time `json:"created_time"`
	Size        int64     `json:"size"`
}

// Client talks to Google Drive and keeps backups inside a dedicated folder.
// The OAuth session lives for the lifetime of the client; the token source
// refreshes expired access tokens transparently. Every operation returns a
// recoverable error when credentials are missing or the API is unreachable.
type Client struct {
	cfg    config.DriveConfig
	logger *zap.Logger

	mu       sync.Mutex
	svc      *drive.Service
	folderID string
}

// NewClient builds a lazy Drive client. No network traffic happens until the
// first operation, so a missing credentials file surfaces per call instead of
// failing startup.
func NewClient(cfg config.DriveConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FolderName == "" {
		cfg.FolderName = "Planner_Backups"
	}
	if cfg.ListPageSize <= 0 {
		cfg.ListPageSize = 10
	}
	return &Client{cfg: cfg, logger: logger}
}

// List returns backup files newest-first.
func (c *Client) List(ctx context.Context) ([]BackupFile, error) {
	svc, folderID, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("'%s' in parents and mimeType='application/json' and trashed=false", folderID)
	result, err := svc.Files.List().
		Context(ctx).
		Q(query).
		PageSize(c.cfg.ListPageSize).
		OrderBy("createdTime desc").
		Fields("files(id, name, createdTime, size)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	files := make([]BackupFile, 0, len(result.Files))
	for _, f := range result.Files {
		created, parseErr := time.Parse(time.RFC3339, f.CreatedTime)
		if parseErr != nil {
			created = time.Time{}
		}
		files = append(files, BackupFile{ID: f.Id, Name: f.Name, CreatedTime: created, Size: f.Size})
	}
	return files, nil
}

// Download fetches the raw textual content of a backup object.
func (c *Client) Download(ctx context.Context, fileID string) (string, error) {
	svc, _, err := c.connect(ctx)
	if err != nil {
		return "", err
	}

	resp, err := svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("download backup %s: %w", fileID, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read backup %s: %w", fileID, err)
	}
	return string(raw), nil
}

// Upload stores a named JSON payload in the backup folder.
func (c *Client) Upload(ctx context.Context, name, content string) error {
	svc, folderID, err := c.connect(ctx)
	if err != nil {
		return err
	}

	meta := &drive.File{
		Name:     name,
		Parents:  []string{folderID},
		MimeType: "application/json",
	}
	if _, err := svc.Files.Create(meta).
		Context(ctx).
		Media(strings.NewReader(content)).
		Do(); err != nil {
		return fmt.Errorf("upload backup %s: %w", name, err)
	}
	return nil
}

// connect builds the Drive service and resolves the backup folder once,
// reusing both on subsequent calls.
func (c *Client) connect(ctx context.Context) (*drive.Service, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cfg.Enabled {
		return nil, "", fmt.Errorf("drive integration disabled")
	}

	if c.svc == nil {
		svc, err := c.buildService(ctx)
		if err != nil {
			return nil, "", err
		}
		c.svc = svc
	}

	if c.folderID == "" {
		folderID, err := c.findOrCreateFolder(ctx)
		if err != nil {
			return nil, "", err
		}
		c.folderID = folderID
	}

	return c.svc, c.folderID, nil
}

func (c *Client) buildService(ctx context.Context) (*drive.Service, error) {
	credsRaw, err := os.ReadFile(c.cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth credentials: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(credsRaw, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth credentials: %w", err)
	}

	token, err := c.loadToken()
	if err != nil {
		return nil, err
	}

	// TokenSource refreshes the access token on expiry using the stored
	// refresh token; persist the rotated token for the next process.
	source := oauthCfg.TokenSource(ctx, token)
	refreshed, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh oauth token: %w", err)
	}
	if refreshed.AccessToken != token.AccessToken {
		c.saveToken(refreshed)
	}

	svc, err := drive.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("build drive service: %w", err)
	}
	return svc, nil
}

func (c *Client) loadToken() (*oauth2.Token, error) {
	raw, err := os.ReadFile(c.cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(raw, token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return token, nil
}

func (c *Client) saveToken(token *oauth2.Token) {
	raw, err := json.Marshal(token)
	if err != nil {
		c.logger.Warn("failed to encode refreshed oauth token", zap.Error(err))
		return
	}
	if err := os.WriteFile(c.cfg.TokenFile, raw, 0o600); err != nil {
		c.logger.Warn("failed to persist refreshed oauth token", zap.Error(err))
	}
}

func (c *Client) findOrCreateFolder(ctx context.Context) (string, error) {
	escaped := strings.ReplaceAll(c.cfg.FolderName, "'", "\\'")
	query := fmt.Sprintf("mimeType='application/vnd.google-apps.folder' and name='%s' and trashed=false", escaped)
	result, err := c.svc.Files.List().Context(ctx).Q(query).Fields("files(id)").Do()
	if err != nil {
		return "", fmt.Errorf("find backup folder: %w", err)
	}
	if len(result.Files) > 0 {
		return result.Files[0].Id, nil
	}

	folder, err := c.svc.Files.Create(&drive.File{
		Name:     c.cfg.FolderName,
		MimeType: "application/vnd.google-apps.folder",
	}).Context(ctx).Fields("id").Do()
	if err != nil {
		return "", fmt.Errorf("create backup folder: %w", err)
	}
	c.logger.Info("created backup folder", zap.String("folder", c.cfg.FolderName))
	return folder.Id, nil
}
