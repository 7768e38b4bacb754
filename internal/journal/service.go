// Package journal keeps an append-only audit trail of exported review
// states: every export commits the payload into a per-document git
// repository, and history reads back from the log.
package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const payloadFile = "review.json"

type Entry struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Record commits an exported payload for the document. The repository
// is created on first use.
func (s *Service) Record(docID string, payload []byte, actor, message string) (Entry, error) {
	lock := s.documentLock(docID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.ensureRepo(docID)
	if err != nil {
		return Entry{}, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return Entry{}, fmt.Errorf("open worktree: %w", err)
	}

	path := filepath.Join(s.repoPath(docID), payloadFile)
	if err := os.WriteFile(path, append(append([]byte{}, payload...), '\n'), 0o644); err != nil {
		return Entry{}, fmt.Errorf("write payload: %w", err)
	}
	if _, err := worktree.Add(payloadFile); err != nil {
		return Entry{}, fmt.Errorf("git add payload: %w", err)
	}

	if message == "" {
		message = "Export review state"
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author:            signature(actor),
	})
	if err != nil {
		return Entry{}, fmt.Errorf("commit payload: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Entry{}, fmt.Errorf("read commit object: %w", err)
	}
	return toEntry(commitObj), nil
}

// History lists exports for a document, newest first. A document that
// was never exported has an empty history.
func (s *Service) History(docID string, limit int) ([]Entry, error) {
	lock := s.documentLock(docID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(docID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return []Entry{}, nil
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	entries := make([]Entry, 0, limit)
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		entries = append(entries, toEntry(commitObj))
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return entries, nil
}

// Payload reads the exported payload at a given commit hash.
func (s *Service) Payload(docID, hash string) ([]byte, error) {
	lock := s.documentLock(docID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(docID))
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return nil, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	commitObj, err := repo.CommitObject(*resolved)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	file, err := commitObj.File(payloadFile)
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", payloadFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open payload reader: %w", err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (s *Service) ensureRepo(docID string) (*git.Repository, error) {
	path := s.repoPath(docID)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	return repo, nil
}

func (s *Service) repoPath(docID string) string {
	return filepath.Join(s.baseDir, docID)
}

func (s *Service) documentLock(docID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[docID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[docID] = lock
	return lock
}

func signature(actor string) *object.Signature {
	if actor == "" {
		actor = "redline"
	}
	return &object.Signature{
		Name:  actor,
		Email: fmt.Sprintf("%s@local.redline.dev", sanitizeEmail(actor)),
		When:  time.Now(),
	}
}

func sanitizeEmail(input string) string {
	runes := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			runes = append(runes, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			runes = append(runes, '.')
		}
	}
	if len(runes) == 0 {
		return "user"
	}
	return string(runes)
}

func toEntry(commitObj *object.Commit) Entry {
	return Entry{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}
