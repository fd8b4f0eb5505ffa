package feed

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Post is one social post as exported by the platform feed dump.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// LoadFromJSONL loads posts from a JSONL file, one JSON object per line.
// Malformed lines are skipped with a warning. Posts without an id get a
// synthetic one so downstream reference rows always have a post to hang
// off.
func LoadFromJSONL(path string) ([]Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var posts []Post
	lines := strings.Split(string(data), "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var post Post
		if err := json.Unmarshal([]byte(line), &post); err != nil {
			log.Printf("Warning: skipping malformed JSON at line %d in %s: %v", i+1, path, err)
			continue
		}
		if strings.TrimSpace(post.Content) == "" {
			continue
		}
		if post.ID == "" {
			post.ID = uuid.NewString()
		}
		posts = append(posts, post)
	}

	if len(posts) == 0 {
		return nil, fmt.Errorf("no valid posts found in %s", path)
	}

	return posts, nil
}
