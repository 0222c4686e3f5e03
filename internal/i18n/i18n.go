// Package i18n holds the user-facing notices and hints in every supported
// language.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/manash/roomedit/pkg/models"
)

// Message keys. The English text doubles as the key.
const (
	msgAuthFailed         = "API key authentication failed. Please select your key again."
	msgNoImage            = "Failed to generate image. Please try again with a different prompt."
	msgGeneric            = "An error occurred."
	msgCredentialRequired = "The PRO tier needs an API key."
	msgHintErase          = "Paint over the objects you want to remove."
	msgHintFurniture      = "Paint where the furniture should be placed."
	msgHintFinish         = "Paint the area whose material should change."
	msgHintDesign         = "Paint an area to redesign only that part, or leave empty for the whole scene."
)

var korean = map[string]string{
	msgAuthFailed:         "API 키 인증 오류가 발생했습니다. 키를 다시 선택해주세요.",
	msgNoImage:            "이미지를 생성하지 못했습니다. 다른 프롬프트로 다시 시도해주세요.",
	msgGeneric:            "오류가 발생했습니다.",
	msgCredentialRequired: "PRO 모델을 사용하려면 API 키가 필요합니다.",
	msgHintErase:          "지우고 싶은 물체를 색칠해주세요.",
	msgHintFurniture:      "가구가 배치될 위치를 색칠해주세요.",
	msgHintFinish:         "바꿀 영역을 마우스로 색칠해주세요.",
	msgHintDesign:         "부분 수정을 원하시면 해당 영역을 색칠하세요.",
}

var (
	supported = []language.Tag{language.English, language.Korean}
	matcher   = language.NewMatcher(supported)
	messages  = newCatalog()
)

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, text := range korean {
		b.SetString(language.Korean, key, text)
		b.SetString(language.English, key, key)
	}
	return b
}

// Supported lists the languages with a full translation.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Match picks the best supported language for the given preferences, each
// either a BCP 47 tag or an Accept-Language header value.
func Match(prefs ...string) language.Tag {
	var tags []language.Tag
	for _, p := range prefs {
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}

// Notices renders messages in one language.
type Notices struct {
	tag     language.Tag
	printer *message.Printer
}

func New(tag language.Tag) *Notices {
	return &Notices{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(messages)),
	}
}

// ForLocale is New(Match(prefs...)).
func ForLocale(prefs ...string) *Notices {
	return New(Match(prefs...))
}

func (n *Notices) Language() language.Tag {
	return n.tag
}

func (n *Notices) AuthFailed() string {
	return n.printer.Sprintf(msgAuthFailed)
}

func (n *Notices) NoImage() string {
	return n.printer.Sprintf(msgNoImage)
}

func (n *Notices) Generic() string {
	return n.printer.Sprintf(msgGeneric)
}

func (n *Notices) CredentialRequired() string {
	return n.printer.Sprintf(msgCredentialRequired)
}

// Hint tells the user what to paint in mode.
func (n *Notices) Hint(mode models.EditMode) string {
	switch mode {
	case models.ModeErase:
		return n.printer.Sprintf(msgHintErase)
	case models.ModeFurniture:
		return n.printer.Sprintf(msgHintFurniture)
	case models.ModeFinish:
		return n.printer.Sprintf(msgHintFinish)
	case models.ModeDesign:
		return n.printer.Sprintf(msgHintDesign)
	default:
		return ""
	}
}
