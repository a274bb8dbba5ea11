package translate

import (
	"fmt"

	acpsdk "github.com/coder/acp-go-sdk"

	"github.com/codex-acp/codex-acp/internal/backend"
)

// UserInputItems translates a prompt's content blocks into the backend's
// UserInputItem list (component C11, step 3). Audio blocks have no backend
// representation yet and are dropped; every other kind degrades to text
// rather than being rejected, since a turn should still proceed on a client
// that sends a resource kind we don't have a dedicated slot for.
func UserInputItems(blocks []acpsdk.ContentBlock) []backend.UserInputItem {
	items := make([]backend.UserInputItem, 0, len(blocks))
	for _, block := range blocks {
		switch {
		case block.Text != nil:
			items = append(items, backend.UserInputItem{Kind: "text", Text: block.Text.Text})

		case block.Image != nil:
			items = append(items, backend.UserInputItem{
				Kind:     "image",
				ImageURL: imageDataURL(block.Image.MimeType, block.Image.Data),
			})

		case block.Audio != nil:
			continue

		case block.Resource != nil:
			if tr := block.Resource.Resource.TextResourceContents; tr != nil {
				items = append(items, backend.UserInputItem{Kind: "text", Text: tr.Text})
			} else if br := block.Resource.Resource.BlobResourceContents; br != nil {
				items = append(items, backend.UserInputItem{
					Kind: "text",
					Text: fmt.Sprintf("[binary resource %s, mime type %s]", br.Uri, br.MimeType),
				})
			}

		case block.ResourceLink != nil:
			items = append(items, backend.UserInputItem{
				Kind: "text",
				Text: fmt.Sprintf("Resource: %s", block.ResourceLink.Uri),
			})
		}
	}
	return items
}

func imageDataURL(mimeType, data string) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, data)
}
