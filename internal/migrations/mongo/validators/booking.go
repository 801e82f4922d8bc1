package validators

import "go.mongodb.org/mongo-driver/bson"

var timeKeyPattern = `^([01][0-9]|2[0-3]):(00|30)$`

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"user_id",
			"venue_id",
			"date",
			"time",
			"total_amount",
			"advance_amount",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			// Minted as an ObjectID hex before the slots are claimed.
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"venue_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"date": bson.M{
				"bsonType": "date",
			},

			"time": bson.M{
				"bsonType": "string",
				"pattern":  timeKeyPattern,
			},

			"start_time": bson.M{
				"bsonType": "string",
				"pattern":  timeKeyPattern,
			},

			"end_time": bson.M{
				"bsonType": []string{"string", "null"},
			},

			"duration_hours": bson.M{
				"bsonType": "double",
				"minimum":  0.5,
				"maximum":  24,
			},

			"total_amount": bson.M{
				"bsonType": "double",
				"minimum":  0,
			},

			"advance_amount": bson.M{
				"bsonType": "double",
				"minimum":  0,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"cancelled",
					"completed",
				},
			},

			"refund_status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"none",
					"pending",
					"processed",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
