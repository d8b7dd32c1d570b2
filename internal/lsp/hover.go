package lsp

import (
	"regexp"
	"strings"

	"github.com/reflens/reflens/internal/manifest"
	"github.com/reflens/reflens/internal/telemetry"
)

// refCallPattern matches a ref(...) call wrapper: the literal "ref(" followed
// by anything up to the closing paren. Nested parens and escaped quotes are
// intentionally not handled.
var refCallPattern = regexp.MustCompile(`ref\([^)]*\)`)

// quotePattern splits a ref call on quote characters to pull out arguments.
var quotePattern = regexp.MustCompile(`['"]`)

// getHover resolves a hover request against the manifest mirror.
func (s *Server) getHover(params HoverParams) *Hover {
	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return nil
	}

	plainWord, _ := doc.GetWordAtPosition(params.Position)

	docPath := URIToPath(params.TextDocument.URI)
	proj := s.projects.ProjectFor(docPath)
	if proj == nil {
		s.logger.Error("no project found for document", "uri", params.TextDocument.URI)
		return nil
	}

	// Hovering the ref keyword itself never yields a tooltip.
	if plainWord == "ref" {
		return nil
	}

	var projectKey, modelName string
	if refCall, _, ok := doc.WordRangeMatching(params.Position, refCallPattern); ok {
		// Arguments are the segments strictly between quote characters. A
		// two-argument call yields three segments: first arg, the literal
		// separator (discarded), second arg.
		args := quoteSegments(refCall)
		switch len(args) {
		case 1:
			projectKey = proj.Root
			modelName = args[0]
			s.telemetry.Enqueue(telemetry.EventModelHover, map[string]string{"type": telemetry.TagSingle})
		case 3:
			// The captured project name is matched against mirror keys as-is.
			projectKey = args[0]
			modelName = args[2]
			s.telemetry.Enqueue(telemetry.EventModelHover, map[string]string{"type": telemetry.TagDual})
		default:
			return nil
		}
	} else {
		// Bare model name outside a ref call.
		if plainWord == "" {
			return nil
		}
		projectKey = proj.Root
		modelName = plainWord
		s.telemetry.Enqueue(telemetry.EventModelHover, map[string]string{"type": telemetry.TagSingle})
	}

	nodes := s.mirror.get(projectKey)
	if nodes == nil {
		return nil
	}
	node := nodes[modelName]
	if node == nil {
		return nil
	}

	// Zero-width range anchored at the cursor.
	anchor := Range{Start: params.Position, End: params.Position}
	return &Hover{
		Contents: MarkupContent{
			Kind:  MarkupKindMarkdown,
			Value: renderNodeHover(node),
		},
		Range: &anchor,
	}
}

// quoteSegments returns the substrings strictly between quote characters.
// "ref('a')" yields ["a"]; "ref('a','b')" yields ["a", ",", "b"]; text
// without quotes yields nothing.
func quoteSegments(s string) []string {
	parts := quotePattern.Split(s, -1)
	if len(parts) < 3 {
		return nil
	}
	return parts[1 : len(parts)-1]
}

// renderNodeHover builds the hover markdown for a model node: alias and
// description, a rule, then each column in manifest order.
func renderNodeHover(node *manifest.NodeMetadata) string {
	var b strings.Builder

	b.WriteString("(ref) **")
	b.WriteString(node.Alias)
	b.WriteString("**")
	if node.Description != "" {
		b.WriteString("  \n")
		b.WriteString(node.Description)
	}
	b.WriteString("\n\n---\n\n")

	for _, col := range node.Columns.Ordered() {
		b.WriteString("(column) ")
		b.WriteString(col.Name)
		if col.DataType != "" {
			b.WriteString(" - ")
			b.WriteString(strings.ToUpper(col.DataType))
		}
		if col.Description != "" {
			b.WriteString("  \n*")
			b.WriteString(col.Description)
			b.WriteString("*")
		}
		b.WriteString("  \n")
	}

	return b.String()
}
