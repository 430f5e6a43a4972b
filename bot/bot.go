// Package bot is the Telegram front end: one session worker per chat,
// inline A-D buttons for quiz questions and plots sent as photos.
package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/korjavin/profesorbot/config"
	"github.com/korjavin/profesorbot/session"
)

const (
	callbackPrefix = "answer:"
	maxMessageLen  = 4096
	plotPrefix     = "🖼️ Gráfica guardada en: "
)

var quizHeaderRe = regexp.MustCompile(`^📝 \*\*Quiz #(\d+)\*\*`)

// Bot represents the Telegram bot
type Bot struct {
	api  *tgbotapi.BotAPI
	deps session.Deps
	log  *zap.SugaredLogger

	mu    sync.Mutex
	chats map[int64]*chat
	pumps sync.WaitGroup
}

// chat is the per-chat session worker plus the question its buttons answer
type chat struct {
	worker *session.Worker

	mu       sync.Mutex
	quizShow int
}

func (c *chat) setQuiz(n int) {
	c.mu.Lock()
	c.quizShow = n
	c.mu.Unlock()
}

func (c *chat) currentQuiz() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quizShow
}

// New creates a new bot instance
func New(cfg *config.Config, deps session.Deps, logger *zap.SugaredLogger) (*Bot, error) {
	if err := cfg.RequireBotToken(); err != nil {
		return nil, err
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	botAPI.Debug = cfg.Debug
	logger.Infof("Authorized on Telegram account %s", botAPI.Self.UserName)

	return &Bot{
		api:   botAPI,
		deps:  deps,
		log:   logger,
		chats: make(map[int64]*chat),
	}, nil
}

// Run polls for updates until ctx is cancelled, then stops every chat worker
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info("Starting bot polling...")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	defer b.shutdown()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			} else if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (b *Bot) shutdown() {
	b.mu.Lock()
	chats := b.chats
	b.chats = make(map[int64]*chat)
	b.mu.Unlock()

	for id, c := range chats {
		if !c.worker.Stop(session.DefaultStopTimeout) {
			b.log.Warnf("Chat %d worker did not stop in time", id)
		}
	}
	b.pumps.Wait()
	b.log.Info("All chat workers stopped")
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// chatFor returns the worker of a chat, starting one on first contact
func (b *Bot) chatFor(ctx context.Context, chatID int64, user *tgbotapi.User) (*chat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.chats[chatID]; ok {
		return c, nil
	}
	w, err := session.NewWorker(ctx, b.deps, displayName(user), b.log.With("chat", chatID))
	if err != nil {
		return nil, err
	}
	c := &chat{worker: w}
	b.chats[chatID] = c
	b.pumps.Add(1)
	go b.pump(chatID, c)
	b.log.Infof("Started session for chat %d (%s)", chatID, displayName(user))
	return c, nil
}

// pump forwards session events to Telegram until the worker stops
func (b *Bot) pump(chatID int64, c *chat) {
	defer b.pumps.Done()
	for ev := range c.worker.Events() {
		switch ev.Kind {
		case session.EventMessage:
			b.deliver(chatID, c, ev.Text)
		case session.EventState:
			b.log.Debugf("Chat %d state: %+v", chatID, ev.State)
		case session.EventUsers:
			b.log.Debugf("Chat %d users: %v", chatID, ev.Users)
		}
	}
}

func (b *Bot) deliver(chatID int64, c *chat, text string) {
	if n, ok := quizNumber(text); ok {
		c.setQuiz(n)
		b.sendQuestion(chatID, n, text)
		return
	}
	if path, ok := strings.CutPrefix(text, plotPrefix); ok {
		b.sendImage(chatID, strings.TrimSpace(path), text)
		return
	}
	b.sendMessage(chatID, text)
}

// commandText rebuilds a command without the @botname suffix Telegram
// adds in groups. /start is the help screen.
func commandText(message *tgbotapi.Message) string {
	if !message.IsCommand() {
		return message.Text
	}
	cmd := message.Command()
	if strings.EqualFold(cmd, "start") {
		cmd = "help"
	}
	args := message.CommandArguments()
	if args == "" {
		return "/" + cmd
	}
	return "/" + cmd + " " + args
}

// handleMessage processes incoming messages
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.Text == "" {
		return
	}
	b.log.Infof("Received message from %s (chat %d): %s", displayName(message.From), message.Chat.ID, message.Text)

	c, err := b.chatFor(ctx, message.Chat.ID, message.From)
	if err != nil {
		b.log.Errorf("Failed to start session for chat %d: %v", message.Chat.ID, err)
		b.sendMessage(message.Chat.ID, "No pude iniciar tu sesión. Inténtalo de nuevo más tarde.")
		return
	}
	if !c.worker.SubmitContext(ctx, session.Request{Kind: session.RequestText, Text: commandText(message)}) {
		b.log.Warnf("Chat %d worker is stopping, message dropped", message.Chat.ID)
	}
}

// parseCallback reads answer:<question>:<choice>
func parseCallback(data string) (question, choice int, err error) {
	if !strings.HasPrefix(data, callbackPrefix) {
		return 0, 0, fmt.Errorf("invalid callback prefix: %s", data)
	}
	parts := strings.Split(strings.TrimPrefix(data, callbackPrefix), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid callback format: %s", data)
	}
	if question, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("invalid question number in callback: %w", err)
	}
	if choice, err = strconv.Atoi(parts[1]); err != nil || choice < 0 || choice > 3 {
		return 0, 0, fmt.Errorf("invalid answer in callback: %s", parts[1])
	}
	return question, choice, nil
}

// handleCallback turns an A-D button press into the matching answer text
func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	b.log.Infof("Handling callback from %s with data: %s", displayName(callback.From), callback.Data)
	if callback.Message == nil {
		return
	}
	question, choice, err := parseCallback(callback.Data)
	if err != nil {
		b.log.Warnf("%v", err)
		return
	}
	chatID := callback.Message.Chat.ID

	c, err := b.chatFor(ctx, chatID, callback.From)
	if err != nil {
		b.log.Errorf("Failed to start session for chat %d: %v", chatID, err)
		return
	}
	if question != c.currentQuiz() {
		b.sendCallbackResponse(callback.ID, "Esa pregunta ya no está activa.")
		return
	}
	letter := string("ABCD"[choice])
	b.sendCallbackResponse(callback.ID, "Respuesta: "+letter)
	c.worker.SubmitContext(ctx, session.Request{Kind: session.RequestText, Text: letter})
}

func quizNumber(text string) (int, bool) {
	m := quizHeaderRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// sendQuestion sends a quiz question with one button per option
func (b *Bot) sendQuestion(chatID int64, number int, text string) {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 4)
	for i, letter := range []string{"A", "B", "C", "D"} {
		data := fmt.Sprintf("%s%d:%d", callbackPrefix, number, i)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(letter, data))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(row)
	b.send(chatID, text, &markup)
}

// sendMessage sends a text message, split to Telegram's size limit
func (b *Bot) sendMessage(chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageLen) {
		b.send(chatID, part, nil)
	}
}

func (b *Bot) send(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, toMarkdownV2(text))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warnf("Markdown rendering failed for chat %d, falling back to plain text: %v", chatID, err)
		plain := tgbotapi.NewMessage(chatID, text)
		if markup != nil {
			plain.ReplyMarkup = *markup
		}
		if _, err := b.api.Send(plain); err != nil {
			b.log.Errorf("Plain text fallback also failed for chat %d: %v", chatID, err)
		}
	}
}

// sendImage sends an image with caption
func (b *Bot) sendImage(chatID int64, imagePath, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(imagePath))
	photo.Caption = caption

	if _, err := b.api.Send(photo); err != nil {
		b.log.Errorf("Error sending image %s: %v", imagePath, err)
		b.sendMessage(chatID, caption)
	}
}

// sendCallbackResponse sends a response to a callback query
func (b *Bot) sendCallbackResponse(callbackID, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(callback); err != nil {
		b.log.Warnf("Error sending callback response: %v", err)
	}
}

// splitMessage cuts text into chunks of at most limit bytes, preferring
// line breaks and never splitting a UTF-8 sequence
func splitMessage(text string, limit int) []string {
	var parts []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		parts = append(parts, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	return append(parts, text)
}
