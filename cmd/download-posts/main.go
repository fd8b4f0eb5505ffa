// Command download-posts pulls public posts from a feed export API and
// writes them as the JSONL format the other tools consume. Post bodies
// arrive as HTML fragments; they are flattened to plain text here so the
// analysis pipeline only ever sees text.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/macanudo/pulso/internal/feed"
)

// apiPost is one post as served by the export endpoint.
type apiPost struct {
	ID          string   `json:"id"`
	AuthorID    string   `json:"author_id"`
	ContentHTML string   `json:"content_html"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"created_at"`
}

func main() {
	var (
		base  = flag.String("base", "", "Feed export base URL (required)")
		limit = flag.Int("limit", 500, "Maximum posts to download")
		out   = flag.String("out", "testdata/posts.jsonl", "Output JSONL path")
	)
	flag.Parse()

	if *base == "" {
		log.Fatal("--base required")
	}

	posts, err := fetchPosts(*base, *limit)
	if err != nil {
		log.Fatal("fetch posts: ", err)
	}
	log.Printf("Fetched %d posts", len(posts))

	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("create output directory: ", err)
		}
	}

	outFile, err := os.Create(*out)
	if err != nil {
		log.Fatal("create output file: ", err)
	}
	defer outFile.Close()

	encoder := json.NewEncoder(outFile)
	written := 0
	for _, p := range posts {
		content := stripHTML(p.ContentHTML)
		if content == "" {
			continue
		}

		item := feed.Post{
			ID:       p.ID,
			AuthorID: p.AuthorID,
			Content:  content,
			Tags:     p.Tags,
		}
		if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
			item.CreatedAt = t
		}

		if err := encoder.Encode(item); err != nil {
			log.Printf("Failed to encode post %s: %v", p.ID, err)
			continue
		}
		written++
	}

	log.Printf("Wrote %d posts to %s", written, *out)
}

func fetchPosts(base string, limit int) ([]apiPost, error) {
	url := fmt.Sprintf("%s/api/posts?limit=%d", strings.TrimSuffix(base, "/"), limit)
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	var posts []apiPost
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func stripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		// Fallback to the raw string if parsing fails
		return strings.TrimSpace(s)
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "br" || n.Data == "p") {
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.Join(strings.Fields(buf.String()), " ")
}
