package preprocessing

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1") // keep only the text
	return urlPattern.ReplaceAllString(input, "")
}

// StripMarkdown renders markdown into plain text. Link destinations, images
// and html are dropped, every other text literal is kept.
func StripMarkdown(input string) string {
	if strings.TrimSpace(input) == "" {
		return input
	}

	md := blackfriday.New(blackfriday.WithNoExtensions())
	root := md.Parse([]byte(input))

	var sb strings.Builder
	root.Walk(func(node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if !entering {
			return blackfriday.GoToNext
		}
		switch node.Type {
		case blackfriday.Image, blackfriday.HTMLBlock, blackfriday.HTMLSpan:
			return blackfriday.SkipChildren
		case blackfriday.Text, blackfriday.Code, blackfriday.CodeBlock:
			sb.Write(node.Literal)
			sb.WriteByte(' ')
		case blackfriday.Softbreak, blackfriday.Hardbreak:
			sb.WriteByte(' ')
		}
		return blackfriday.GoToNext
	})

	return RemoveLinks(strings.Join(strings.Fields(sb.String()), " "))
}
