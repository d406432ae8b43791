package pathstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// Mirror copies finished documents into pathstore under
// {prefix}/documents/{id}/meta, /outline and /blocks.
type Mirror struct {
	client *Client
	prefix string
}

func NewMirror(client *Client, prefix string) *Mirror {
	if prefix == "" {
		prefix = "docoutline"
	}
	return &Mirror{client: client, prefix: prefix}
}

func (m *Mirror) Name() string { return "pathstore" }

func (m *Mirror) docKey(id string) string {
	return fmt.Sprintf("%s/documents/%s", m.prefix, id)
}

// Save writes the document metadata, outline and raw blocks. The first
// failing write is returned; earlier writes are left in place and are
// overwritten by the next successful Save.
func (m *Mirror) Save(ctx context.Context, doc *doctree.Document) error {
	base := m.docKey(doc.ID)
	source := "docoutline:" + doc.ID

	nodes := []struct {
		key   string
		value any
	}{
		{base + "/meta", map[string]any{
			"filename":      doc.Filename,
			"title":         doc.Outline.Title,
			"content_hash":  doc.ContentHash,
			"block_count":   len(doc.Blocks),
			"heading_count": len(doc.Outline.Entries),
			"created_at":    doc.CreatedAt.Format(time.RFC3339),
		}},
		{base + "/outline", doc.Outline},
		{base + "/blocks", doc.Blocks},
	}
	for _, n := range nodes {
		if err := m.client.PutNode(ctx, n.key, NodeRequest{Value: n.value, Source: source}); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a mirrored document and its children.
func (m *Mirror) Delete(ctx context.Context, id string) error {
	return m.client.DeleteNode(ctx, m.docKey(id), true)
}
