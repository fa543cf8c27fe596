package game

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/draw-guess-demo/domain/game"
)

// GamePort is the interface other modules use to drive the game engine.
type GamePort interface {
	CreateRoom(ctx context.Context, key, moderator string) (*domain.Snapshot, error)
	JoinRoom(ctx context.Context, key, userName string) (*domain.Snapshot, error)
	GetSettings(ctx context.Context, key string) (*domain.Settings, error)
	UpdateSettings(ctx context.Context, key, by string, patch domain.SettingsPatch) (*domain.Settings, error)
	StartRound(ctx context.Context, key, by string) error
	SubmitGuess(ctx context.Context, key, userName, text string) error
	UpdateDrawing(ctx context.Context, key, userName string, payload json.RawMessage) error
	GetState(ctx context.Context, key, requester string) (*domain.Snapshot, error)
}

// gameAdapter implements GamePort over the service container. Errors cross
// the serialized boundary as wire codes and come back out as the same
// sentinels the engine returned.
type gameAdapter struct {
	container mono.ServiceContainer
}

// NewGameAdapter creates a new adapter for the game services.
// container is the ServiceContainer received via SetDependencyServiceContainer.
func NewGameAdapter(container mono.ServiceContainer) GamePort {
	if container == nil {
		panic("game adapter requires non-nil ServiceContainer")
	}
	return &gameAdapter{container: container}
}

func (a *gameAdapter) call(ctx context.Context, service string, req, resp any) error {
	if err := helper.CallRequestReplyService[any, any](
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", service, err)
	}
	return nil
}

func unwire(e *ServiceError) error {
	if e == nil {
		return nil
	}
	return domain.ErrorFromCode(e.Code, e.Message)
}

func (a *gameAdapter) CreateRoom(ctx context.Context, key, moderator string) (*domain.Snapshot, error) {
	req := CreateRoomRequest{Key: key, Moderator: moderator}
	var resp RoomResponse
	if err := a.call(ctx, ServiceCreateRoom, &req, &resp); err != nil {
		return nil, err
	}
	if err := unwire(resp.Err); err != nil {
		return nil, err
	}
	return resp.Room, nil
}

func (a *gameAdapter) JoinRoom(ctx context.Context, key, userName string) (*domain.Snapshot, error) {
	req := JoinRoomRequest{Key: key, UserName: userName}
	var resp RoomResponse
	if err := a.call(ctx, ServiceJoinRoom, &req, &resp); err != nil {
		return nil, err
	}
	if err := unwire(resp.Err); err != nil {
		return nil, err
	}
	return resp.Room, nil
}

func (a *gameAdapter) GetSettings(ctx context.Context, key string) (*domain.Settings, error) {
	req := GetSettingsRequest{Key: key}
	var resp SettingsResponse
	if err := a.call(ctx, ServiceGetSettings, &req, &resp); err != nil {
		return nil, err
	}
	if err := unwire(resp.Err); err != nil {
		return nil, err
	}
	return resp.Settings, nil
}

func (a *gameAdapter) UpdateSettings(ctx context.Context, key, by string, patch domain.SettingsPatch) (*domain.Settings, error) {
	req := UpdateSettingsRequest{Key: key, By: by, Patch: patch}
	var resp SettingsResponse
	if err := a.call(ctx, ServiceUpdateSettings, &req, &resp); err != nil {
		return nil, err
	}
	if err := unwire(resp.Err); err != nil {
		return nil, err
	}
	return resp.Settings, nil
}

func (a *gameAdapter) StartRound(ctx context.Context, key, by string) error {
	req := StartRoundRequest{Key: key, By: by}
	var resp AckResponse
	if err := a.call(ctx, ServiceStartRound, &req, &resp); err != nil {
		return err
	}
	return unwire(resp.Err)
}

func (a *gameAdapter) SubmitGuess(ctx context.Context, key, userName, text string) error {
	req := SubmitGuessRequest{Key: key, UserName: userName, Text: text}
	var resp AckResponse
	if err := a.call(ctx, ServiceSubmitGuess, &req, &resp); err != nil {
		return err
	}
	return unwire(resp.Err)
}

func (a *gameAdapter) UpdateDrawing(ctx context.Context, key, userName string, payload json.RawMessage) error {
	req := UpdateDrawingRequest{Key: key, UserName: userName, Payload: payload}
	var resp AckResponse
	if err := a.call(ctx, ServiceUpdateDrawing, &req, &resp); err != nil {
		return err
	}
	return unwire(resp.Err)
}

func (a *gameAdapter) GetState(ctx context.Context, key, requester string) (*domain.Snapshot, error) {
	req := GetStateRequest{Key: key, Requester: requester}
	var resp RoomResponse
	if err := a.call(ctx, ServiceGetState, &req, &resp); err != nil {
		return nil, err
	}
	if err := unwire(resp.Err); err != nil {
		return nil, err
	}
	return resp.Room, nil
}
