// Package artifacts demultiplexes the heterogeneous answer stream into
// typed, optionally persisted outputs.
package artifacts

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"

	"go.uber.org/zap"

	"gyreclient/generation"
	"gyreclient/transport"
)

// Stream is the minimal answer source the processor consumes. Recv
// returns io.EOF when the source is exhausted.
type Stream interface {
	Recv() (*generation.Answer, error)
}

// Output is one demultiplexed artifact plus its derived file identity.
// Path is decided whether or not the content was written.
type Output struct {
	Path     string
	Artifact *generation.Artifact

	// Filtered is set when the artifact's finish reason indicates the
	// service's content moderation flagged it. The artifact is still
	// persisted under its decided path; this client does no blocking.
	Filtered bool
}

// Processor classifies artifacts and derives their output identities.
type Processor struct {
	prefix string
	write  bool
	log    *zap.Logger
}

// NewProcessor builds a processor. With write false the classification
// and naming logic runs identically but nothing touches the filesystem.
// A nil logger disables logging.
func NewProcessor(prefix string, write bool, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{prefix: prefix, write: write, log: log}
}

// Outputs returns the lazy output sequence over a stream of answers.
// The producer advances only when Next is called, so the caller decides
// when each artifact (and its file write) materializes.
func (p *Processor) Outputs(answers Stream) *Outputs {
	return &Outputs{proc: p, answers: answers}
}

// Outputs is a pull-based iterator over demultiplexed artifacts.
type Outputs struct {
	proc    *Processor
	answers Stream
	current *generation.Answer
	pos     int

	// index counts artifacts across the whole call, not per answer.
	index int
}

// Next returns the next (identity, artifact) pair in encounter order.
// It pulls answers from the underlying stream as needed, skipping
// keep-alives, and propagates the stream's errors (including io.EOF)
// unmodified.
func (o *Outputs) Next() (*Output, error) {
	for {
		if o.current != nil && o.pos < len(o.current.Artifacts) {
			artifact := o.current.Artifacts[o.pos]
			o.pos++

			out, err := o.proc.emit(o.current, artifact, o.index)
			if err != nil {
				return nil, err
			}
			o.index++
			return out, nil
		}

		answer, err := o.answers.Recv()
		if err != nil {
			return nil, err
		}
		o.current = answer
		o.pos = 0
	}
}

// emit decides the artifact's extension and content, and persists it
// when writing is enabled.
func (p *Processor) emit(answer *generation.Answer, artifact *generation.Artifact, index int) (*Output, error) {
	base := fmt.Sprintf("%s-%s-%s-%d", p.prefix, answer.RequestID, answer.AnswerID, index)

	ext, contents, err := classify(artifact)
	if err != nil {
		return nil, err
	}

	out := &Output{
		Path:     base + ext,
		Artifact: artifact,
		Filtered: artifact.FinishReason == generation.FinishFilter,
	}

	if p.write {
		if err := os.WriteFile(out.Path, contents, 0o644); err != nil {
			return nil, fmt.Errorf("artifacts: write %s: %w", out.Path, err)
		}
		p.log.Info("wrote artifact",
			zap.String("type", artifact.Type.String()),
			zap.String("path", out.Path),
		)
		if out.Filtered {
			p.log.Warn("artifact flagged by content filter",
				zap.String("type", artifact.Type.String()),
				zap.String("path", out.Path),
			)
		}
	}

	return out, nil
}

// classify maps an artifact to its file extension and serialized
// content: images keep their binary payload under a MIME-derived
// extension, classification results and text render as JSON, and
// anything else is persisted as raw wire-codec bytes.
func classify(artifact *generation.Artifact) (ext string, contents []byte, err error) {
	switch artifact.Type {
	case generation.ArtifactImage:
		return extensionForMime(artifact.Mime), artifact.Binary, nil

	case generation.ArtifactClassifications:
		contents, err = json.MarshalIndent(artifact.Classifier, "", "  ")
		if err != nil {
			return "", nil, fmt.Errorf("artifacts: render classifier: %w", err)
		}
		return ".pb.json", contents, nil

	case generation.ArtifactText:
		contents, err = json.MarshalIndent(artifact, "", "  ")
		if err != nil {
			return "", nil, fmt.Errorf("artifacts: render artifact: %w", err)
		}
		return ".pb.json", contents, nil

	default:
		contents, err = transport.Marshal(artifact)
		if err != nil {
			return "", nil, fmt.Errorf("artifacts: serialize artifact: %w", err)
		}
		return ".pb", contents, nil
	}
}

// preferredExt pins the common image types; mime.ExtensionsByType order
// varies by platform (.jpe vs .jpg).
var preferredExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// extensionForMime picks a file extension for a declared MIME type,
// falling back to .bin for types the platform does not know.
func extensionForMime(mimeType string) string {
	if ext, ok := preferredExt[mimeType]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ".bin"
	}
	return exts[0]
}
