package script

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"clapper/internal/logging"
)

var (
	commentPattern     = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockSplitPattern  = regexp.MustCompile(`\n\s*\n`)
	inlineActorPattern = regexp.MustCompile(`(?s)^(<actor\s+[^>]+/>)\s*(.*)$`)
)

// Parser turns script text into a Document. Content never fails a parse;
// only source read errors surface.
type Parser struct {
	logger *slog.Logger
}

// NewParser returns a parser logging parse decisions at debug level.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Parser{logger: logging.NewComponentLogger(logger, "parser")}
}

// Parse reads the whole source and parses it.
func (p *Parser) Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return p.parseText(string(data)), nil
}

// ParseString parses in-memory script text.
func (p *Parser) ParseString(source string) *Document {
	return p.parseText(source)
}

// ParseFile reads and parses a script file.
func (p *Parser) ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}
	return p.parseText(string(data)), nil
}

func (p *Parser) parseText(content string) *Document {
	content = commentPattern.ReplaceAllString(content, "")
	blocks := blockSplitPattern.Split(strings.TrimSpace(content), -1)

	doc := &Document{}
	var scene *Scene
	actor := DefaultActor

	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		if fragment, err := ParseFragment(block); err == nil {
			if strings.EqualFold(fragment.Name, "actor") {
				actor = directiveActor(fragment)
				p.logger.Debug("actor switch", logging.String(logging.FieldActor, actor))
				continue
			}
			scene = &Scene{Overlay: fragment}
			doc.Scenes = append(doc.Scenes, scene)
			actor = DefaultActor
			p.logger.Debug("scene start",
				logging.String("overlay", fragment.Canonical()),
				logging.Int("scene_index", len(doc.Scenes)-1))
			continue
		} else if strings.HasPrefix(block, "<") {
			p.logger.Debug("markup block treated as text", logging.Error(err))
		}

		if match := inlineActorPattern.FindStringSubmatch(block); match != nil {
			if fragment, err := ParseFragment(match[1]); err == nil {
				actor = directiveActor(fragment)
			} else {
				actor = DefaultActor
				p.logger.Debug("malformed inline actor directive", logging.Error(err))
			}
			block = strings.TrimSpace(match[2])
		}

		if scene == nil {
			scene = &Scene{}
			doc.Scenes = append(doc.Scenes, scene)
		}
		scene.Paragraphs = append(scene.Paragraphs, NewParagraph(actor, block))
	}

	return doc
}

func directiveActor(fragment *Overlay) string {
	if name := strings.TrimSpace(fragment.Attr("name")); name != "" {
		return name
	}
	return DefaultActor
}
