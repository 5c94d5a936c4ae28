package websocket

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// publicErrors are reported to the client verbatim.
var publicErrors = []error{
	apperror.ErrEmptyName,
	apperror.ErrAlreadyConnected,
	apperror.ErrInvalidBoardSize,
	apperror.ErrBoardSizeChosen,
	apperror.ErrInvalidCell,
	apperror.ErrCellOccupied,
	apperror.ErrNotYourTurn,
	apperror.ErrGameFinished,
	apperror.ErrGameIsNotStarted,
}

func (that *Server) handleAnnounce(client *Client, msg *Message) error {
	var req AnnounceRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return that.replyMalformed(client, msg.Action, err)
	}

	player, err := that.registry.AnnouncePlayer(client.id, req.Name)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			that.sendTo(client.id, actionNameConflict, NameConflictResponse{Name: req.Name, Error: apperror.ErrNameConflict.Error()})
			return nil
		}

		return that.replyError(client, msg.Action, err)
	}

	that.sendTo(client.id, actionWaiting, WaitingResponse{Player: player.Name})

	return that.attemptMatch(client, msg.Action, false)
}

func (that *Server) handleMatch(client *Client, msg *Message) error {
	return that.attemptMatch(client, msg.Action, true)
}

func (that *Server) attemptMatch(client *Client, action string, ackWaiting bool) error {
	result, err := that.registry.AttemptMatch(client.id)
	if err != nil {
		return that.replyError(client, action, err)
	}

	if !result.Matched {
		if ackWaiting {
			that.sendTo(client.id, actionWaiting, WaitingResponse{})
		}

		return nil
	}

	session := result.Session
	for _, player := range []*entity.Player{session.Player1, session.Player2} {
		that.sendTo(player.ConnectionID, actionMatched, MatchedResponse{
			SessionID:  session.ID,
			Player1:    session.Player1.Name,
			Player2:    session.Player2.Name,
			Mark:       player.Mark,
			MovesFirst: player.Mark == entity.MarkX,
		})
	}

	return nil
}

func (that *Server) handleBoardSize(client *Client, msg *Message) error {
	var req BoardSizeRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return that.replyMalformed(client, msg.Action, err)
	}

	session, err := that.registry.ChooseBoardSize(req.SessionID, client.id, req.Size)
	if err != nil {
		return that.replyError(client, msg.Action, err)
	}

	response := StartedResponse{
		SessionID: session.ID,
		Size:      session.BoardSize,
	}
	if first := session.PlayerByMark(session.Status.TurnMark()); first != nil {
		response.FirstPlayer = first.Name
	}

	for _, connectionID := range session.ConnectionIDs() {
		that.sendTo(connectionID, actionStarted, response)
	}

	return nil
}

func (that *Server) handleMove(client *Client, msg *Message) error {
	var req MoveRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return that.replyMalformed(client, msg.Action, err)
	}

	result, err := that.registry.SubmitMove(client.id, req.Row, req.Col)
	if err != nil {
		return that.replyError(client, msg.Action, err)
	}

	session := result.Session
	move := MoveResponse{
		SessionID: session.ID,
		Row:       result.Row,
		Col:       result.Col,
		Mark:      result.Player.Mark,
		Status:    session.Status,
	}
	if next := session.PlayerByMark(session.Status.TurnMark()); next != nil {
		move.NextPlayer = next.Name
	}

	recipients := session.ConnectionIDs()
	for _, connectionID := range recipients {
		that.sendTo(connectionID, actionMove, move)
	}

	if !session.IsFinished() {
		return nil
	}

	over := GameOverResponse{
		SessionID: session.ID,
		Status:    session.Status,
	}
	if winner := session.PlayerByMark(session.Status.WinnerMark()); winner != nil {
		over.Winner = winner.Name
	}

	for _, connectionID := range recipients {
		that.sendTo(connectionID, actionGameOver, over)
	}

	return nil
}

func (that *Server) handleChat(client *Client, msg *Message) error {
	var req ChatRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return that.replyMalformed(client, msg.Action, err)
	}

	result, err := that.registry.RecordChat(req.SessionID, client.id, req.Text)
	if err != nil {
		return that.replyError(client, msg.Action, err)
	}

	response := ChatResponse{
		SessionID: result.SessionID,
		Player:    result.Message.PlayerName,
		Text:      result.Message.Text,
		Timestamp: result.Message.Timestamp,
	}

	for _, connectionID := range result.Recipients {
		that.sendTo(connectionID, actionChatMessage, response)
	}

	return nil
}

func (that *Server) handleDisconnect(client *Client) {
	log := that.logger.With("method", "handleDisconnect", "connection_id", client.id)

	result, err := that.registry.HandleDisconnect(client.id)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			log.Error("failed to handle disconnect", "error", err)
		}

		return
	}

	if !result.Aborted || result.OpponentConnectionID == "" {
		return
	}

	that.sendTo(result.OpponentConnectionID, actionOpponentLeft, OpponentLeftResponse{
		SessionID: result.SessionID,
		Player:    result.Player.Name,
		Message:   fmt.Sprintf("%s left the game", result.Player.Name),
	})
}

// replyError maps an application error to a notice for the caller.
// Stale references are dropped silently.
func (that *Server) replyError(client *Client, action string, err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		that.logger.Debug("stale request ignored", "connection_id", client.id, "action", action, "error", err)
		return nil
	}

	for _, public := range publicErrors {
		if errors.Is(err, public) {
			that.sendTo(client.id, actionError, ErrorResponse{Action: action, Error: public.Error()})
			return nil
		}
	}

	that.sendTo(client.id, actionError, ErrorResponse{Action: action, Error: "internal error"})

	return err
}

func (that *Server) replyMalformed(client *Client, action string, err error) error {
	that.sendTo(client.id, actionError, ErrorResponse{Action: action, Error: "malformed payload"})

	return fmt.Errorf("failed to unmarshal payload: %w", err)
}
