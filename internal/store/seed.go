package store

import (
	"fmt"

	"gorm.io/gorm"
)

// defaultRegexPresets is the built-in chapter pattern catalog. Patterns
// are RE2; the names and examples follow the Korean web-novel formats the
// catalog was collected from.
var defaultRegexPresets = []RegexPreset{
	{Name: "정규식 01", Example: "[1화]", Pattern: `(.+\d+화.)`},
	{Name: "정규식 02", Example: "005. 가나다라 1", Pattern: `(^[0-9]{3,}[.]\s.*.[0-9]$)`},
	{Name: "정규식 03", Example: "0001 / 1050 ──────────", Pattern: `(^[0-9]{4,})(\s[/]\s[0-9]{4,}...........)`},
	{Name: "정규식 04", Example: "2화 가나다라 (1)", Pattern: `(^[0-9]+화.*)`},
	{Name: "정규식 05", Example: "< 가나다라 >", Pattern: `(<.*>)$`},
	{Name: "정규식 06", Example: "＃1화 가나다라", Pattern: `^#\d+.*`},
	{Name: "정규식 07", Example: "54. 가나다라", Pattern: `(\d+\.\s+.+)`},
	{Name: "정규식 08", Example: "#50. 가나다라(3)", Pattern: `(#+\d+\.\s+.+)`},
	{Name: "정규식 09", Example: "제1장 가나다라", Pattern: `^제\d+장\s+.*`},
	{Name: "정규식 10", Example: "1", Pattern: `^\d+$`},
	{Name: "정규식 11", Example: "제 1화", Pattern: `제\s*\d+화\.\s*[^\n]+`},
	{Name: "정규식 12", Example: "외전 1화 - 가나다라 (2)", Pattern: `외전\s*\d+화\s*[-–]\s*[^\n]+`},
	{Name: "정규식 13", Example: "=-=-=-=", Pattern: `=-=-=-=`},
	{Name: "정규식 14", Example: "", Pattern: `\b\d{5}\b`},
	{Name: "정규식 15", Example: "00001 1화", Pattern: `\b\d{5}\s\d+화\b`},
	{Name: "정규식 16", Example: "00001 1화 닥터최태수", Pattern: `\b\d{5}\s*\d+화\b`},
	{Name: "정규식 17", Example: "1화 닥터최태수", Pattern: `\d+화\b`},
	{Name: "정규식 18", Example: "2부 123화 가나다라", Pattern: `[0-9]+부\s[0-9]+화\s[^\n]+`},
	{Name: "정규식 19", Example: "외전 1화", Pattern: `외전\s*\d+화`},
	{Name: "정규식 20", Example: "<1화> 미 국세청 범죄수사국의 검은머리 요원", Pattern: `^<\d+화>.+$`},
	{Name: "정규식 21", Example: "<천하제일 곤륜객잔 1권 1화>", Pattern: `<천하제일 곤륜객잔 \d+권 \d+화>`},
	{Name: "정규식 22", Example: "대한민국 절대 재벌! 1화", Pattern: `대한민국 절대 재벌! \d{1,3}화`},
	{Name: "정규식 23", Example: "< 001 : 프롤로그 >", Pattern: `< \d{3} : .+ >$`},
	{Name: "정규식 24", Example: "524 : 대한민국의 방패", Pattern: `^\d{3} : .+$`},
	{Name: "정규식 25", Example: "1편. 청동기 시대에서의 삶", Pattern: `^(?:외전\s*)?\d+편\.\s+.+$`},
	{Name: "정규식 26", Example: "천마는 조용히 살고싶다-1화", Pattern: `천마는 조용히 살고싶다-\d{1,3}화`},
	{Name: "정규식 27", Example: "01-천산의 객잔?", Pattern: `^\d{1,3}-(.*)$`},
	{Name: "정규식 28", Example: "외전-", Pattern: `외전-(.*)$`},
	{Name: "정규식 29", Example: "제1편", Pattern: `제\d+편\s+.*`},
	{Name: "정규식 30", Example: "우주재벌 막내아들-1화", Pattern: `우주재벌 막내아들-\d{1,3}화`},
	{Name: "정규식 31", Example: "만년만에 귀환한 플레이어 515화", Pattern: `만년만에\s귀환한\s플레이어\s(외전\s\(\d+\)|\d+)화`},
	{Name: "정규식 32", Example: "< Episode 1. 유료 서비스 시작 (1) >", Pattern: `< Episode \d+\. [^>]+ >`},
	{Name: "정규식 33", Example: "# [47화] 대장간", Pattern: `^# \[\d+화\] [^\(\r\n]+(?: \(\d+\))?$`},
	{Name: "정규식 35", Example: "048 - 비상 계엄 (7)", Pattern: `^\d{3} - .+ \(\d+\)$`},
	{Name: "정규식 36", Example: "002 - 대혼란", Pattern: `^\d{3} - .+$`},
	{Name: "정규식 37", Example: "1화", Pattern: `\b\d{1,3}화\b`},
}

// defaultStylePresets mirrors the built-in text style rows.
var defaultStylePresets = []StylePreset{
	{Name: "Chapter Title", Kind: "chapter", Enabled: true, Align: "center", FontStyle: "bold", FontColor: "#000000", Description: "챕터 제목"},
	{Name: "Main Text", Kind: "main", Enabled: true, Align: "left", FontStyle: "normal", FontColor: "#000000", Description: "본문 내용"},
	{Name: "Bracket 1", Kind: "bracket", Enabled: true, Align: "left", FontStyle: "normal", FontColor: "#888888", Description: "괄호 스타일 1"},
}

// seed inserts the default catalogs when their tables are empty. Reopening
// an existing database leaves user edits alone.
func (d *Database) seed() error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&RegexPreset{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count regex presets: %w", err)
		}
		if count == 0 {
			presets := make([]RegexPreset, len(defaultRegexPresets))
			copy(presets, defaultRegexPresets)
			for i := range presets {
				presets[i].Enabled = true
			}
			if err := tx.Create(&presets).Error; err != nil {
				return fmt.Errorf("failed to seed regex presets: %w", err)
			}
			if d.logger != nil {
				d.logger.Info("Seeded default regex presets", map[string]interface{}{
					"count": len(presets),
				})
			}
		}

		if err := tx.Model(&StylePreset{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count style presets: %w", err)
		}
		if count == 0 {
			presets := make([]StylePreset, len(defaultStylePresets))
			copy(presets, defaultStylePresets)
			if err := tx.Create(&presets).Error; err != nil {
				return fmt.Errorf("failed to seed style presets: %w", err)
			}
			if d.logger != nil {
				d.logger.Info("Seeded default style presets", map[string]interface{}{
					"count": len(presets),
				})
			}
		}

		return nil
	})
}
