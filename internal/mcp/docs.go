package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `meeting-copilot stores summaries of business-relevant Zoom meetings.

Use search_transcripts for topic questions ("what did we decide about the portal?"),
list_transcripts to browse recent meetings by host, type or date, and get_transcript
to read a full summary and, when needed, the cleaned transcript. When enabled,
recent_activity shows when summaries were stored, sent to their host or deleted.

All tools are read-only. Meetings judged irrelevant were never stored.`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "copilot://docs/summary-format",
		Name:        "summary-format",
		Title:       "Summary format",
		Description: "Sections every stored summary contains",
		Content: `# Summary format

Summaries are markdown with these sections:

- **Topic** - one line naming what the meeting was about
- **Overview** - a short paragraph
- **Key takeaways** - decisions and facts worth remembering
- **Next steps** - owners and actions where stated
- **Potential gaps** - open questions or risks nobody addressed, omitted when there are none

Metadata alongside the summary:

- meeting_type: internal, external or unknown
- projects and clients mentioned
- external_participants named in the conversation
- verified_participant_emails from Zoom attendance, when available
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
