package prompt

import (
	_ "embed"
	"strconv"
	"strings"
)

//go:embed template/agent.txt
var agentRaw string

// Agent returns the voice agent system prompt for the given business and
// settlement threshold.
func Agent(business string, settlementPercentage int) string {
	r := strings.NewReplacer(
		"{{business}}", strings.TrimSpace(business),
		"{{percentage}}", strconv.Itoa(settlementPercentage),
	)
	return strings.TrimSpace(r.Replace(agentRaw))
}
