package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/matchvault/backend/pkg/queue"
)

var readyBody = template.Must(template.New("recording_ready").Parse(`Hi{{if .RecipientName}} {{.RecipientName}}{{end}},

The recording of "{{.RecordingTitle}}"{{if .VenueName}} at {{.VenueName}}{{end}} from {{.MatchDate.Format "Monday, 2 January 2006"}} is ready to watch.
{{if .LibraryURL}}
Watch it here: {{.LibraryURL}}
{{end}}
See you on the pitch!
`))

type readyView struct {
	queue.RecordingReadyPayload
	LibraryURL string
}

// RenderRecordingReady builds the subject and plain-text body for a ready recording.
func RenderRecordingReady(p queue.RecordingReadyPayload, libraryURL string) (Message, error) {
	var body bytes.Buffer
	if err := readyBody.Execute(&body, readyView{RecordingReadyPayload: p, LibraryURL: libraryURL}); err != nil {
		return Message{}, fmt.Errorf("render recording ready email: %w", err)
	}
	return Message{
		To:      p.ToEmail,
		Subject: fmt.Sprintf("Your recording is ready: %s", headerValue(p.RecordingTitle)),
		Body:    body.String(),
	}, nil
}
