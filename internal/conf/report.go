package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
)

// ReportConfig contains the report wording loaded from YAML
type ReportConfig struct {
	Languages     map[string]*LanguageConfig `yaml:"languages"`
	SummaryPrompt string                     `yaml:"summary_prompt"`
}

// LanguageConfig contains the wording of one language. Empty fields keep the built-in text.
type LanguageConfig struct {
	Title      string      `yaml:"title"`
	Labels     LabelConfig `yaml:"labels"`
	Weekdays   []string    `yaml:"weekdays"`
	Months     []string    `yaml:"months"`
	NoiseWords []string    `yaml:"noise_words"`
}

// LabelConfig contains section and placeholder wording
type LabelConfig struct {
	Period           string `yaml:"period"`
	Count            string `yaml:"count"`
	Important        string `yaml:"important"`
	General          string `yaml:"general"`
	NoContent        string `yaml:"no_content"`
	ChannelNoContent string `yaml:"channel_no_content"`
	Summarized       string `yaml:"summarized"`
	Ellipsis         string `yaml:"ellipsis"`
}

// LoadReportConfig loads report wording from a YAML file
func LoadReportConfig(configPath string) (*ReportConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/digest.yaml",
			"/etc/feishu-digest-bot/digest.yaml",
		}
		// Add path relative to executable
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "digest.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	var err error

	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			loadedPath = p
			break
		}
	}

	if data == nil {
		if configPath != "" {
			return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
		}
		fmt.Println("[Config] No digest.yaml found, using defaults")
		return DefaultReportConfig(), nil
	}

	fmt.Printf("[Config] Loading report wording from: %s\n", loadedPath)

	var config ReportConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", loadedPath, err)
	}

	config.fillDefaults()

	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *ReportConfig) fillDefaults() {
	if c.SummaryPrompt == "" {
		c.SummaryPrompt = DefaultReportConfig().SummaryPrompt
	}
	if c.Languages == nil {
		c.Languages = make(map[string]*LanguageConfig)
	}
}

// Labels returns the wording of lang: the built-in labels overridden by the YAML values
func (c *ReportConfig) Labels(lang string) domain.ReportLabels {
	labels := domain.LabelsFor(lang)
	lc, ok := c.Languages[lang]
	if !ok || lc == nil {
		return labels
	}

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&labels.Title, lc.Title)
	override(&labels.Period, lc.Labels.Period)
	override(&labels.Count, lc.Labels.Count)
	override(&labels.ImportantHeading, lc.Labels.Important)
	override(&labels.GeneralHeading, lc.Labels.General)
	override(&labels.NoContent, lc.Labels.NoContent)
	override(&labels.ChannelNoContent, lc.Labels.ChannelNoContent)
	override(&labels.Summarized, lc.Labels.Summarized)
	override(&labels.Ellipsis, lc.Labels.Ellipsis)

	if len(lc.Weekdays) == len(labels.Weekdays) {
		copy(labels.Weekdays[:], lc.Weekdays)
	} else if len(lc.Weekdays) > 0 {
		fmt.Printf("[Config] Ignoring %s weekdays: expected 7 names, got %d\n", lang, len(lc.Weekdays))
	}
	if len(lc.Months) == len(labels.Months) {
		copy(labels.Months[:], lc.Months)
	} else if len(lc.Months) > 0 {
		fmt.Printf("[Config] Ignoring %s months: expected 12 names, got %d\n", lang, len(lc.Months))
	}

	return labels
}

// NoiseWords returns the extra noise words of lang
func (c *ReportConfig) NoiseWords(lang string) []string {
	if lc, ok := c.Languages[lang]; ok && lc != nil {
		return lc.NoiseWords
	}
	return nil
}

// DefaultReportConfig returns the default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Languages: make(map[string]*LanguageConfig),
		SummaryPrompt: `You summarize the messages of one chat channel for a daily digest.

Requirements:
1. Keep decisions, announcements, open questions and who raised them
2. Drop greetings, thanks and small talk
3. Write plain sentences in the language of the messages, no markdown, no list
4. At most {{max_length}} characters
5. Output the summary directly, no prefix like "Summary:"`,
	}
}
