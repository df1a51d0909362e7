package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/mp-comb/app/state"
)

// Channel describes the RSS channel wrapped around a source's unread articles.
type Channel struct {
	SourceName string
	Keyword    string
	// Link is the upstream list the articles came from, if known.
	Link string
}

type Generator struct {
	baseURL string
	port    string
	version string
}

// NewGenerator creates a generator. The self link points at baseURL, or at
// localhost:port when baseURL is empty.
func NewGenerator(baseURL, port, version string) *Generator {
	return &Generator{baseURL: baseURL, port: port, version: version}
}

func (g *Generator) Run(channel Channel, items []state.ReadableItem) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	selfLink := g.selfLink(channel.SourceName)

	g.writeElement(&buf, "title", fmt.Sprintf("%s: unread", channel.SourceName), 4)
	if channel.Link != "" {
		g.writeElement(&buf, "link", channel.Link, 4)
	} else {
		g.writeElement(&buf, "link", selfLink, 4)
	}
	description := fmt.Sprintf("Unread articles of %s", channel.SourceName)
	if channel.Keyword != "" {
		description = fmt.Sprintf("Unread articles of %s matching %q", channel.SourceName, channel.Keyword)
	}
	g.writeElement(&buf, "description", description, 4)

	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	var lastBuildDate time.Time
	for _, item := range items {
		if t := createTime(item); t.After(lastBuildDate) {
			lastBuildDate = t
		}
	}
	if lastBuildDate.IsZero() {
		lastBuildDate = time.Now().In(time.Local)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("MP-Comb/%s", g.version), 4)

	for _, item := range items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) selfLink(sourceName string) string {
	if g.baseURL != "" {
		return fmt.Sprintf("%s/feeds/%s", g.baseURL, sourceName)
	}
	return fmt.Sprintf("http://localhost:%s/feeds/%s", g.port, sourceName)
}

func (g *Generator) writeItem(buf *bytes.Buffer, item state.ReadableItem) {
	buf.WriteString("    <item>\n")

	if item.Link != "" {
		buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(item.Link)))
		xml.EscapeText(buf, []byte(item.Link))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", item.Title, 6)
	g.writeElement(buf, "link", item.Link, 6)

	if item.CreateTime > 0 {
		g.writeElement(buf, "pubDate", createTime(item).Format(time.RFC1123Z), 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}

// create_time is a unix timestamp in seconds.
func createTime(item state.ReadableItem) time.Time {
	if item.CreateTime <= 0 {
		return time.Time{}
	}
	return time.Unix(item.CreateTime, 0).In(time.Local)
}
