package game

// Server-to-client event kinds.
const (
	EventInitialize       = "initialize"
	EventUserJoined       = "userJoined"
	EventConnectionStatus = "userConnectionStatus"
	EventNewModerator     = "newModerator"
	EventSettingsUpdated  = "settingsUpdated"
	EventGameStarted      = "gameStarted"
	EventYouAreDrawing    = "youAreDrawing" // private to the drawer
	EventTimeUpdate       = "timeUpdate"
	EventDrawingUpdate    = "drawingUpdate"
	EventNewGuess         = "newGuess"
	EventCorrectGuess     = "correctGuess"
	EventRoundEnd         = "roundEnd"
	EventError            = "error"
)

// Client-to-server event kinds.
const (
	ClientUpdateSettings = "updateSettings"
	ClientStartGame      = "startGame"
	ClientSubmitGuess    = "submitGuess"
	ClientUpdateDrawing  = "updateDrawing"
)
