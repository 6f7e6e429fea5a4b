package catalog

// User-facing failure messages. Error details go to the log, never to the user.
const (
	MsgFiguresUnavailable       = "Could not load figures from the server"
	MsgFigureNotFound           = "Figure not found or an error occurred"
	MsgTypesUnavailable         = "Could not load figure types"
	MsgCreateFailed             = "Could not create the figure. Check the entered data."
	MsgUpdateFailed             = "Could not update the figure. Check the data."
	MsgSealFailed               = "Could not seal the figure."
	MsgFigureSealed             = "This figure is sealed and can no longer be changed."
	MsgInvalidFigure            = "Name, character and manufacturer are required."
	MsgCharactersUnavailable    = "Could not load the character list"
	MsgManufacturersUnavailable = "Could not load the manufacturer list"
)

// MsgFormOptionsUnavailable is shown when the reference data for the figure form is incomplete
const MsgFormOptionsUnavailable = "Could not load the data needed for editing."
