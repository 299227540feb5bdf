package discord

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// chatTimeout bounds one text exchange, model call included.
const chatTimeout = 60 * time.Second

// onMessageCreate treats every plain message as conversation: show the typing
// indicator, run the synchronous text path, and reply in-thread. The pipeline
// returns a canned apology instead of an error, so there is always something
// to send.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if !isConversation(m.Content) {
		return
	}

	if err := s.ChannelTyping(m.ChannelID); err != nil {
		b.log.Debug("discord: typing indicator", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
	defer cancel()

	reply := b.pipeline.Respond(ctx, m.Author.ID, m.Content)
	if _, err := s.ChannelMessageSendReply(m.ChannelID, reply, m.Reference()); err != nil {
		b.log.Error("discord: send chat reply", "error", err)
	}
}

// isConversation reports whether content should get a conversational reply.
// Empty messages (attachments, stickers) and legacy prefix commands are
// ignored.
func isConversation(content string) bool {
	content = strings.TrimSpace(content)
	return content != "" && !strings.HasPrefix(content, "!")
}
