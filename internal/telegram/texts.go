package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/moredark/talking-bob/internal/domain"
)

const (
	welcomeText = "Привет! Я Talking Bob — бот для практики разговорного английского.\n\n" +
		"Я буду отправлять тебе вопросы на английском. Отвечай голосовым сообщением, и я дам обратную связь.\n\n" +
		"Каждый день в выбранное время я пришлю новую тему — настроить её можно в /settings.\n\n" +
		"Сейчас пришлю первый вопрос..."

	startFirstText = "Пожалуйста, начните с команды /start"

	rateLimitedText = "Превышен лимит запросов. Попробуйте позже."

	noPromptYetText      = "Сначала получите вопрос от бота. Отправьте /start для начала."
	alreadyAnsweredText  = "Вы уже ответили на этот вопрос. Дождитесь следующего вопроса."
	analyzingText        = "⏳ Анализирую ваш ответ..."
	analysisFailedText   = "😔 Произошла ошибка при анализе. Попробуйте ещё раз позже."
	settingsErrorText    = "Не удалось открыть настройки. Попробуйте позже."
	settingsSavedText    = "Настройки сохранены."
	askCustomTimeText    = "Отправьте время в формате ЧЧ:ММ (например, 08:30):"
	badCustomTimeText    = "Неверный формат. Пример: 08:30"
	askCustomTZText      = "Отправьте часовой пояс в формате Region/City (например, Asia/Almaty):"
	badCustomTZText      = "Неизвестный часовой пояс. Пример: Europe/Moscow"
	voiceLimitText       = "Превышен лимит голосовых сообщений. Попробуйте позже."
	noActivePromptsText  = "К сожалению, сейчас нет доступных вопросов."
)

// Callback data for settings buttons.
const (
	cbToggle     = "settings:toggle"
	cbTimeMenu   = "settings:time"
	cbTimeCustom = "settings:time:custom"
	cbTZMenu     = "settings:tz"
	cbTZCustom   = "settings:tz:custom"
	cbTimePrefix = "set_time:" // set_time:HH:MM
	cbTZPrefix   = "set_tz:"   // set_tz:Region/City
)

func settingsText(u *domain.User) string {
	state := "✅ включена"
	if !u.DailyPromptEnabled {
		state = "⏸ выключена"
	}
	next := "—"
	if u.NextPromptAt != nil {
		if s, err := domain.LocalizeTime(*u.NextPromptAt, u.Timezone); err == nil {
			next = s
		}
	}
	return "🧾 Ваши настройки:\n" +
		"• Ежедневная тема: " + state + "\n" +
		"• Время: " + domain.FormatClock(u.DailyPromptHour, u.DailyPromptMinute) + "\n" +
		"• Часовой пояс: " + u.Timezone + "\n" +
		"• Следующая тема: " + next
}

func settingsKeyboard(enabled bool) tgbotapi.InlineKeyboardMarkup {
	toggle := "⏸ Выключить ежедневную тему"
	if !enabled {
		toggle = "▶️ Включить ежедневную тему"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggle, cbToggle),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🕘 Время", cbTimeMenu),
			tgbotapi.NewInlineKeyboardButtonData("🌍 Часовой пояс", cbTZMenu),
		),
	)
}

func timePresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("09:00", cbTimePrefix+"09:00"),
			tgbotapi.NewInlineKeyboardButtonData("12:00", cbTimePrefix+"12:00"),
			tgbotapi.NewInlineKeyboardButtonData("13:00", cbTimePrefix+"13:00"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("15:00", cbTimePrefix+"15:00"),
			tgbotapi.NewInlineKeyboardButtonData("18:00", cbTimePrefix+"18:00"),
			tgbotapi.NewInlineKeyboardButtonData("21:00", cbTimePrefix+"21:00"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍️ Своё время…", cbTimeCustom),
		),
	)
}

func tzPresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Europe/Moscow", cbTZPrefix+"Europe/Moscow"),
			tgbotapi.NewInlineKeyboardButtonData("Europe/Berlin", cbTZPrefix+"Europe/Berlin"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Asia/Almaty", cbTZPrefix+"Asia/Almaty"),
			tgbotapi.NewInlineKeyboardButtonData("UTC", cbTZPrefix+"UTC"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍️ Другой…", cbTZCustom),
		),
	)
}
