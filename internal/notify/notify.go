package notify

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier надсилає службові повідомлення (створення/видалення кімнат)
// адміністратору в Telegram. Необов'язковий компонент: без токена сервер
// працює без сповіщень.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64

	// Events приймає готові рядки від хаба; канал буферизований, хаб
	// ніколи не блокується на сповіщеннях.
	Events chan string
}

func NewNotifier(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Printf("Ops notifier authorized as @%s", bot.Self.UserName)
	return &Notifier{
		bot:    bot,
		chatID: chatID,
		Events: make(chan string, 64),
	}, nil
}

// Run споживає події до закриття каналу.
func (n *Notifier) Run() {
	for message := range n.Events {
		msg := tgbotapi.NewMessage(n.chatID, message)
		if _, err := n.bot.Send(msg); err != nil {
			log.Printf("WARNING: Failed to send ops notification: %v", err)
		}
	}
}
