package http

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"trustmark/internal/domain"

	"github.com/gin-gonic/gin"
)

const badgeCacheControl = "public, max-age=3600"

type badgeStyle struct {
	label string
	color string
}

// badgeFor maps a proof to its public badge face. Only a manifest-backed
// pass gets the green badge; everything else renders as "unverified".
func badgeFor(proof *domain.Proof) badgeStyle {
	if proof.C2PAPresent && proof.PolicyResult == "pass" {
		return badgeStyle{label: "verified", color: "#2da44e"}
	}
	if proof.PolicyResult == "review" {
		return badgeStyle{label: "under review", color: "#bf8700"}
	}
	return badgeStyle{label: "unverified", color: "#6e7781"}
}

func (s *Server) handleBadge(c *gin.Context) {
	trustmarkID := strings.TrimSuffix(c.Param("trustmark_id"), ".svg")
	proof, err := s.proofs.BadgeProof(c.Request.Context(), trustmarkID)
	if err != nil {
		writeError(c, err)
		return
	}

	style := badgeFor(proof)
	c.Header("Cache-Control", badgeCacheControl)
	c.Data(http.StatusOK, "image/svg+xml", []byte(renderBadgeSVG(style)))
}

func (s *Server) handleBadgeEmbed(c *gin.Context) {
	trustmarkID := c.Param("trustmark_id")
	proof, err := s.proofs.BadgeProof(c.Request.Context(), trustmarkID)
	if err != nil {
		writeError(c, err)
		return
	}

	id := html.EscapeString(proof.TrustmarkID)
	snippet := fmt.Sprintf(
		`<a href="/t/%s" target="_blank" rel="noopener"><img src="/v1/badge/%s.svg" alt="TrustMark provenance badge" height="20"></a>`,
		id, id)
	c.Header("Cache-Control", badgeCacheControl)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(snippet))
}

func renderBadgeSVG(style badgeStyle) string {
	label := "trustmark"
	// Rough text metrics, 7px per character at 11px font.
	leftWidth := 7*len(label) + 10
	rightWidth := 7*len(style.label) + 10
	total := leftWidth + rightWidth

	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="20" role="img" aria-label="%s: %s">
<rect width="%d" height="20" fill="#24292f"/>
<rect x="%d" width="%d" height="20" fill="%s"/>
<g fill="#fff" font-family="Verdana,DejaVu Sans,sans-serif" font-size="11">
<text x="%d" y="14" text-anchor="middle">%s</text>
<text x="%d" y="14" text-anchor="middle">%s</text>
</g>
</svg>`,
		total, label, style.label,
		leftWidth,
		leftWidth, rightWidth, style.color,
		leftWidth/2, label,
		leftWidth+rightWidth/2, style.label)
}
