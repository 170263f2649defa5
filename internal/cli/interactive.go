package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"github.com/mohaoran/AlphaCouncil/consts"
	"github.com/mohaoran/AlphaCouncil/internal/config"
	"github.com/mohaoran/AlphaCouncil/internal/models"
)

var tickerFormat = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// runInteractiveMode collects run parameters through prompts and executes
// the analysis.
func runInteractiveMode(cfg *config.Config) error {
	DisplayWelcomeBanner()

	symbol, err := promptForTicker()
	if err != nil {
		return err
	}
	market, err := promptForMarket()
	if err != nil {
		return err
	}
	date, err := promptForAnalysisDate()
	if err != nil {
		return err
	}
	analysts, err := promptForAnalysts()
	if err != nil {
		return err
	}
	depth, err := promptForDepth()
	if err != nil {
		return err
	}

	req := models.AnalysisRequest{
		StockSymbol:      symbol,
		MarketType:       market,
		AnalysisDate:     date,
		SelectedAnalysts: analysts,
		ResearchDepth:    depth,
	}
	return runAnalysis(cfg, req)
}

// promptForTicker prompts the user to enter a stock ticker symbol
func promptForTicker() (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: "Enter the stock ticker symbol (e.g., AAPL, 700, 600519):",
		Help:    "US tickers like AAPL, HK codes like 700, A-share codes like 600519",
	}

	err := survey.AskOne(prompt, &ticker, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(strings.ToUpper(val.(string)))
		if len(str) == 0 {
			return fmt.Errorf("ticker symbol cannot be empty")
		}
		if len(str) > 10 {
			return fmt.Errorf("ticker symbol too long (max 10 characters)")
		}
		if !tickerFormat.MatchString(str) {
			return fmt.Errorf("invalid ticker format (use letters, numbers, dots, and hyphens only)")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ToUpper(ticker)), nil
}

// promptForMarket prompts for the market the symbol trades on
func promptForMarket() (models.MarketType, error) {
	var choice string
	prompt := &survey.Select{
		Message: "Select the market:",
		Options: []string{string(models.MarketUS), string(models.MarketHK), string(models.MarketCN)},
		Default: string(models.MarketUS),
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", err
	}
	return models.ParseMarketType(choice)
}

// promptForAnalysisDate prompts for the analysis date
func promptForAnalysisDate() (string, error) {
	var dateStr string
	prompt := &survey.Input{
		Message: "Enter the analysis date (YYYY-MM-DD) or press Enter for today:",
		Default: time.Now().Format("2006-01-02"),
	}

	err := survey.AskOne(prompt, &dateStr, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(val.(string))
		if str == "" {
			return nil
		}
		parsed, err := time.Parse("2006-01-02", str)
		if err != nil {
			return fmt.Errorf("invalid date format, use YYYY-MM-DD")
		}
		if parsed.After(time.Now().AddDate(0, 0, 1)) {
			return fmt.Errorf("analysis date cannot be more than 1 day in the future")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(dateStr) == "" {
		return time.Now().Format("2006-01-02"), nil
	}
	return strings.TrimSpace(dateStr), nil
}

// promptForAnalysts prompts for the analyst team selection
func promptForAnalysts() ([]string, error) {
	var selected []string
	prompt := &survey.MultiSelect{
		Message: "Select the analysts to run:",
		Options: consts.AnalystOrder,
		Default: []string{consts.AnalystMarket, consts.AnalystFundamentals},
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return nil, err
	}
	return selected, nil
}

// promptForDepth prompts for the research depth level
func promptForDepth() (int, error) {
	options := []string{
		"1 - quick",
		"2 - basic",
		"3 - standard",
		"4 - deep",
		"5 - comprehensive",
	}
	var choice string
	prompt := &survey.Select{
		Message: "Select the research depth:",
		Options: options,
		Default: options[2],
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return 0, err
	}
	return int(choice[0] - '0'), nil
}
