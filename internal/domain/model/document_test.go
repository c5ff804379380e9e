package model_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/tally/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestDocument_SetScore(t *testing.T) {
	convey.Convey("Given an empty document", t, func() {
		doc := model.NewDocument()
		entry := model.ScoreEntry{Business: 8, Innovation: 7, Readiness: 9, Presentation: 6, Comment: "ok"}

		convey.Convey("When a judge scores a team for the first time", func() {
			doc.SetScore("aleksej", "team1", entry)

			convey.Convey("Then the inner map is created and holds the entry", func() {
				got, ok := doc.Entry("aleksej", "team1")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(got, convey.ShouldResemble, entry)
			})
		})

		convey.Convey("When the same cell is scored twice", func() {
			doc.SetScore("aleksej", "team1", model.ScoreEntry{Business: 1})
			doc.SetScore("aleksej", "team1", entry)

			convey.Convey("Then the last write wins", func() {
				got, _ := doc.Entry("aleksej", "team1")
				convey.So(got, convey.ShouldResemble, entry)
				convey.So(doc.Scores["aleksej"], convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When SetScore is called on a zero Document", func() {
			var zero model.Document
			zero.SetScore("egor", "team2", entry)

			convey.Convey("Then it does not panic and stores the entry", func() {
				_, ok := zero.Entry("egor", "team2")
				convey.So(ok, convey.ShouldBeTrue)
			})
		})
	})
}

func TestDocument_JSON(t *testing.T) {
	convey.Convey("Given the persisted JSON layout", t, func() {
		convey.Convey("When an empty document is encoded", func() {
			data, err := json.Marshal(model.NewDocument())

			convey.Convey("Then scores is an object, never null", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldEqual, `{"revealed":false,"scores":{}}`)
			})
		})

		convey.Convey("When a document with a scored cell is encoded", func() {
			doc := model.NewDocument()
			doc.SetScore("aleksej", "team1", model.ScoreEntry{Business: 8, Innovation: 7, Readiness: 9, Presentation: 6, Comment: "ok"})
			data, err := json.Marshal(doc)

			convey.Convey("Then it matches the documented shape", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldEqual,
					`{"revealed":false,"scores":{"aleksej":{"team1":{"business":8,"innovation":7,"readiness":9,"presentation":6,"comment":"ok"}}}}`)
			})
		})

		convey.Convey("When the file carries keys the backend does not own", func() {
			in := `{"teams":[{"id":"team1","name":"Rockets"}],"scores":{},"revealed":true}`
			var doc model.Document
			err := json.Unmarshal([]byte(in), &doc)

			convey.Convey("Then they survive a decode/encode cycle", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(doc.Revealed, convey.ShouldBeTrue)
				raw, ok := doc.Extra("teams")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(string(raw), convey.ShouldEqual, `[{"id":"team1","name":"Rockets"}]`)

				out, err := json.Marshal(doc)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(out), convey.ShouldContainSubstring, `"teams":[{"id":"team1","name":"Rockets"}]`)
			})
		})

		convey.Convey("When scores is null or missing", func() {
			var a, b model.Document
			errA := json.Unmarshal([]byte(`{"scores":null,"revealed":false}`), &a)
			errB := json.Unmarshal([]byte(`{"revealed":false}`), &b)

			convey.Convey("Then both decode to an empty map", func() {
				convey.So(errA, convey.ShouldBeNil)
				convey.So(errB, convey.ShouldBeNil)
				convey.So(a.Scores, convey.ShouldNotBeNil)
				convey.So(b.Scores, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the input is not an object", func() {
			var doc model.Document

			convey.Convey("Then decoding fails", func() {
				convey.So(json.Unmarshal([]byte(`null`), &doc), convey.ShouldNotBeNil)
				convey.So(json.Unmarshal([]byte(`[1,2]`), &doc), convey.ShouldNotBeNil)
				convey.So(json.Unmarshal([]byte(`{"revealed":"yes"}`), &doc), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestDocument_Clone(t *testing.T) {
	convey.Convey("Given a document with scores", t, func() {
		doc := model.NewDocument()
		doc.SetScore("aleksej", "team1", model.ScoreEntry{Business: 5})

		convey.Convey("When the clone is mutated", func() {
			clone := doc.Clone()
			clone.SetScore("aleksej", "team1", model.ScoreEntry{Business: 9})
			clone.SetScore("egor", "team2", model.ScoreEntry{})
			clone.Revealed = true

			convey.Convey("Then the original is untouched", func() {
				got, _ := doc.Entry("aleksej", "team1")
				convey.So(got.Business, convey.ShouldEqual, 5)
				convey.So(doc.Scores, convey.ShouldNotContainKey, "egor")
				convey.So(doc.Revealed, convey.ShouldBeFalse)
			})
		})
	})
}
