package postgres

const (
	queryCreateRoom = `
		INSERT INTO chat_rooms (name, owner_id)
		VALUES ($1, $2)
		RETURNING id`
	queryGetRoomByID   = `SELECT id, name, owner_id FROM chat_rooms WHERE id = $1`
	queryGetRoomByName = `SELECT id, name, owner_id FROM chat_rooms WHERE name = $1`
	queryListRooms     = `SELECT id, name, owner_id FROM chat_rooms ORDER BY id`
	queryDeleteRoom    = `DELETE FROM chat_rooms WHERE id = $1`

	queryCreateUser = `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id`
	queryGetUserByID       = `SELECT id, username, password_hash FROM users WHERE id = $1`
	queryGetUserByUsername = `SELECT id, username, password_hash FROM users WHERE username = $1`
)

const (
	queryAppendHistory = `INSERT INTO room_history (room, line) VALUES ($1, $2)`
	queryReadHistory   = `SELECT line FROM room_history WHERE room = $1 ORDER BY id`
)
