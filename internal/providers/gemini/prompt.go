// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package gemini

import (
	"fmt"
	"strings"

	"github.com/tomtom215/marquee/internal/models"
)

const answerFormat = `Respond with ONLY a JSON object, no other text:
{"language": "<ISO 639-1 code of the language the titles are written in>", "titles": ["<title>", ...]}

Use the exact official title as listed on TMDB. Order titles from most to least relevant.`

// BuildPrompt renders the prompt for a query or a watch history.
func BuildPrompt(req models.RecommendRequest) string {
	kind := "movies"
	if req.ContentType == models.ContentTypeSeries {
		kind = "TV series"
	}
	lang := req.Language
	if lang == "" {
		lang = "en"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s recommendation engine. ", kind)

	if len(req.History) > 0 {
		fmt.Fprintf(&b, "A user recently watched and enjoyed these titles:\n")
		for _, t := range req.History {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		fmt.Fprintf(&b, "\nRecommend exactly %d %s they would likely enjoy. Do NOT recommend titles listed above.\n", req.Count, kind)
	} else {
		fmt.Fprintf(&b, "A user asked:\n\n%q\n\nRecommend exactly %d %s that directly match the request.\n", req.Query, req.Count, kind)
	}

	fmt.Fprintf(&b, "Write titles in the language with ISO 639-1 code %q when an official localized title exists.\n\n", lang)
	b.WriteString(answerFormat)
	return b.String()
}
