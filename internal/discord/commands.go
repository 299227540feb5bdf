package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/seraphina-bot/seraphina/internal/game"
)

// commands returns the slash command surface registered on startup.
func commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "hello",
			Description: "Say hi to Seraphina",
		},
		{
			Name:        "flip",
			Description: "Flip a coin against Seraphina",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "guess",
					Description: "Your call",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "heads", Value: "heads"},
						{Name: "tails", Value: "tails"},
					},
				},
			},
		},
		{
			Name:        "chess",
			Description: "Play chess against Seraphina",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "start",
					Description: "Start a new game (you play White)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "move",
					Description: "Make a move in UCI notation, e.g. e2e4",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "move",
							Description: "Your move, e.g. e2e4 or g1f3",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "stop",
					Description: "Abandon the current game",
				},
			},
		},
		{
			Name:        "voice",
			Description: "Control Seraphina's voice channel presence",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "join",
					Description: "Join your voice channel and listen",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "leave",
					Description: "Leave the voice channel",
				},
			},
		},
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	user := interactionUser(i)
	if user == nil {
		return
	}

	data := i.ApplicationCommandData()
	var content string
	switch data.Name {
	case "hello":
		content = "Hello! I'm ready to chat and play games."
	case "flip":
		content = b.flipReply(user.ID, data.Options[0].StringValue())
	case "chess":
		sub := data.Options[0]
		switch sub.Name {
		case "start":
			content = b.chessStartReply(user.ID)
		case "move":
			content = b.chessMoveReply(user.ID, user.Username, sub.Options[0].StringValue())
		case "stop":
			content = b.chessStopReply(user.ID)
		}
	case "voice":
		switch data.Options[0].Name {
		case "join":
			content = b.voiceJoinReply(s, user.ID)
		case "leave":
			content = b.voiceLeaveReply()
		}
	default:
		return
	}

	b.respond(s, i, content)
}

// flipReply flips the coin and narrates the result.
func (b *Bot) flipReply(userID, guess string) string {
	res := b.coin.Flip(userID, guess)
	if res.Won {
		return fmt.Sprintf("It's %s! You win!", res.Result)
	}
	return fmt.Sprintf("It's %s! You lose.", res.Result)
}

const chessUnavailable = "Chess is unavailable right now. No engine is configured on my end."

func (b *Bot) chessStartReply(userID string) string {
	if b.chess == nil {
		return chessUnavailable
	}
	imageURL, err := b.chess.Start(userID)
	if errors.Is(err, game.ErrGameInProgress) {
		return "We already have a game going! Use `/chess stop` to reset it."
	}
	return "Alright, let's play! You are White. Make your move using `/chess move e2e4`.\n" + imageURL
}

func (b *Bot) chessMoveReply(userID, username, move string) string {
	if b.chess == nil {
		return chessUnavailable
	}
	res, err := b.chess.Move(userID, move)
	switch {
	case errors.Is(err, game.ErrNoGame):
		return "We aren't playing a game right now! Use `/chess start`."
	case errors.Is(err, game.ErrBadNotation):
		return "I didn't understand that. Use standard UCI format like `e2e4` or `g1f3`."
	case errors.Is(err, game.ErrIllegalMove):
		return "That is an illegal move! Try again."
	case err != nil:
		b.log.Error("discord: chess engine move", "error", err)
		return "Oops! I couldn't reach my chess brain. Try that move again in a moment."
	}

	switch res.Outcome {
	case game.OutcomePlayerWon:
		return fmt.Sprintf("Checkmate! You beat me, %s!", username)
	case game.OutcomeEngineWon:
		return "Checkmate! I win! Better luck next time.\n```text\n" + res.Board + "\n```"
	case game.OutcomeDraw:
		return "It's a draw! Good game.\n```text\n" + res.Board + "\n```"
	default:
		return fmt.Sprintf("I played **%s**. Your turn!\n%s", res.EngineMove, res.ImageURL)
	}
}

func (b *Bot) chessStopReply(userID string) string {
	if b.chess == nil {
		return chessUnavailable
	}
	if b.chess.Stop(userID) {
		return "Game stopped. I'll put the pieces away!"
	}
	return "We aren't playing right now!"
}

func (b *Bot) voiceJoinReply(s *discordgo.Session, userID string) string {
	channelID := b.callerVoiceChannel(s, userID)
	if channelID == "" {
		return "You need to be in a voice channel first!"
	}
	if err := b.joinVoice(context.Background(), channelID); err != nil {
		b.log.Error("discord: voice join", "error", err)
		return "I couldn't join your voice channel. Check my permissions and try again."
	}
	return "Joined your channel and I am listening!"
}

func (b *Bot) voiceLeaveReply() string {
	if !b.leaveVoice() {
		return "I'm not in a voice channel."
	}
	return "Left the voice channel."
}

// respond sends the interaction reply; a failure here is only loggable.
func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		b.log.Error("discord: interaction respond", "error", err)
	}
}

// interactionUser returns the invoking user for both guild and DM
// interactions.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
