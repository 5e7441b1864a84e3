// internal/service/classify/keywords.go

package classify

import "regexp"

// Strong indicators that a post is a research write-up.
var ddKeywords = []string{
	"due diligence", "dd", "deep dive", "analysis", "research",
	"valuation", "dcf", "discounted cash flow", "price target", "pt",
	"fair value", "intrinsic value", "thesis", "bull case", "bear case",
	"catalyst", "moat", "competitive advantage", "financial analysis",
	"fundamental analysis", "comprehensive analysis",
}

// Supporting financial vocabulary.
var financialTerms = []string{
	"revenue", "earnings", "ebitda", "margin", "profit", "loss",
	"debt", "cash flow", "balance sheet", "income statement",
	"pe ratio", "p/e", "eps", "book value", "market cap",
	"float", "short interest", "insider trading", "quarterly",
	"annual", "guidance", "forecast", "outlook", "growth",
	"dividend", "yield", "payout", "ratio", "multiple",
	"operating", "net income", "gross", "expenses", "costs",
}

// Section headers that suggest a structured write-up.
var structureKeywords = []string{
	"summary:", "tldr:", "tl;dr:", "conclusion:", "thesis:",
	"overview:", "background:", "financials:", "risks:",
	"pros:", "cons:", "bull case:", "bear case:", "valuation:",
	"catalysts:", "investment thesis:", "key points:",
}

// Meme-language markers that pull the score down.
var memeKeywords = []string{
	"yolo", "moon", "🚀", "diamond hands", "hodl", "ape", "tendies",
}

// numberPatterns detect quantitative data. Each counts once no matter how many
// times it matches.
var numberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+\.\d+%`),                           // 15.5%
	regexp.MustCompile(`(?i)\$\d+[\.,]?\d*[BMK]?`),            // $100M, $5.2B
	regexp.MustCompile(`(?i)\d+[BMK]\s*\$`),                   // 100B $
	regexp.MustCompile(`(?i)P/E\s*:\s*\d+`),                   // P/E: 25
	regexp.MustCompile(`(?i)\d+x\s*(revenue|earnings|sales)`), // 5x revenue
}

// tagKeywords maps the eight fixed content categories to their trigger words.
var tagKeywords = map[string][]string{
	"Valuation": {"valuation", "dcf", "intrinsic value", "fair value", "undervalued", "overvalued"},
	"Earnings":  {"earnings", "eps", "quarterly", "annual", "revenue", "profit"},
	"Thesis":    {"thesis", "bull case", "bear case", "investment case"},
	"Risks":     {"risks", "risk factors", "concerns", "headwinds", "challenges"},
	"Catalyst":  {"catalyst", "catalysts", "upcoming", "events", "announcement"},
	"DCF":       {"dcf", "discounted cash flow", "free cash flow", "terminal value"},
	"Moat":      {"moat", "competitive advantage", "barriers to entry", "network effect"},
	"Technical": {"support", "resistance", "chart", "technical analysis", "pattern"},
}

// tagOrder keeps tag output deterministic.
var tagOrder = []string{"Valuation", "Earnings", "Thesis", "Risks", "Catalyst", "DCF", "Moat", "Technical"}

var chartIndicators = []string{"chart", "graph", "image", "screenshot", "table", "|", "---"}
