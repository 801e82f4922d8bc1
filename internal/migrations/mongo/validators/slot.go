package validators

import "go.mongodb.org/mongo-driver/bson"

var SlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"venue_id",
			"date",
			"time",
			"is_booked",
			"is_blocked",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"venue_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			// Always UTC midnight of the slot's calendar day.
			"date": bson.M{
				"bsonType": "date",
			},

			"time": bson.M{
				"bsonType": "string",
				"pattern":  timeKeyPattern,
			},

			"is_booked": bson.M{
				"bsonType": "bool",
			},

			"is_blocked": bson.M{
				"bsonType": "bool",
			},

			"booking_id": bson.M{
				"bsonType": []string{"string", "null"},
			},
		},
	},
}
