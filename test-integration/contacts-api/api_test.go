package integration

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/contacts-server/test-integration/contacts-api/helpers"
)

var _ = Describe("Contacts API", Label("api", "database"), Ordered, func() {
	var serverHelper *helpers.ServerTestHelper

	BeforeAll(func() {
		serverHelper = helpers.NewServerTestHelper(ctx, connStr)
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(30 * time.Second)
	})

	AfterAll(func() {
		Expect(serverHelper.StopServer()).To(Succeed())
	})

	createContact := func(suffix string) helpers.ContactEnvelope {
		resp, err := serverHelper.CreateContact(helpers.NewContactFixture(suffix).JSON())
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var created helpers.ContactEnvelope
		Expect(helpers.DecodeBody(resp, &created)).To(Succeed())
		return created
	}

	listContacts := func() helpers.ContactList {
		resp, err := serverHelper.ListContacts()
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var list helpers.ContactList
		Expect(helpers.DecodeBody(resp, &list)).To(Succeed())
		return list
	}

	Context("System endpoints", func() {
		It("should report ready once the schema exists", func() {
			resp, err := serverHelper.Get("/readiness")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body map[string]any
			Expect(helpers.DecodeBody(resp, &body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("status", "ready"))
			Expect(body).To(HaveKeyWithValue("database_ready", true))
			Expect(body).To(HaveKeyWithValue("schema_ready", true))
		})

		It("should report a healthy database connection", func() {
			resp, err := serverHelper.Get("/api/health")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body map[string]any
			Expect(helpers.DecodeBody(resp, &body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("status", "healthy"))
			Expect(body).To(HaveKeyWithValue("database", "connected"))
		})

		It("should answer liveness", func() {
			resp, err := serverHelper.Get("/liveness")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			_ = resp.Body.Close()
		})
	})

	Context("Create and list", func() {
		It("should return a created contact in the list", func() {
			created := createContact("list")
			Expect(created.Message).To(Equal("Contact created!"))
			Expect(created.Contact.ID).To(BeNumerically(">", 0))
			Expect(created.Contact.FirstName).To(Equal("Ada"))

			found := helpers.FindContact(listContacts().Contacts, created.Contact.ID)
			Expect(found).NotTo(BeNil())
			Expect(found.Email).To(Equal("ada+list@example.com"))
		})

		It("should reject a body missing a field and persist nothing", func() {
			before := len(listContacts().Contacts)

			resp, err := serverHelper.CreateContact(`{"firstName":"Ada","lastName":"Lovelace"}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var body map[string]string
			Expect(helpers.DecodeBody(resp, &body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("message", "Missing required fields"))

			Expect(listContacts().Contacts).To(HaveLen(before))
		})

		It("should accept empty strings as present values", func() {
			resp, err := serverHelper.CreateContact(`{"firstName":"","lastName":"","email":""}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			_ = resp.Body.Close()
		})
	})

	Context("Update", func() {
		It("should change only the fields present in the body", func() {
			created := createContact("update")
			id := strconv.FormatInt(created.Contact.ID, 10)

			resp, err := serverHelper.UpdateContact(id, `{"email":"countess@example.com"}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var updated helpers.ContactEnvelope
			Expect(helpers.DecodeBody(resp, &updated)).To(Succeed())
			Expect(updated.Message).To(Equal("Contact updated successfully"))
			Expect(updated.Contact.Email).To(Equal("countess@example.com"))
			Expect(updated.Contact.FirstName).To(Equal("Ada"))
			Expect(updated.Contact.LastName).To(Equal("Lovelace"))
		})

		It("should return 404 for an unknown id", func() {
			resp, err := serverHelper.UpdateContact("999999999", `{"email":"x@example.com"}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			var body map[string]string
			Expect(helpers.DecodeBody(resp, &body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("message", "Contact not found"))
		})

		It("should return 404 for an unknown id even with an over-long field", func() {
			longEmail := strings.Repeat("a", 200) + "@example.com"
			resp, err := serverHelper.UpdateContact("999999999", `{"email":"`+longEmail+`"}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			_ = resp.Body.Close()
		})

		It("should reject an explicit null and keep the stored value", func() {
			created := createContact("null")
			id := strconv.FormatInt(created.Contact.ID, 10)

			resp, err := serverHelper.UpdateContact(id, `{"email":null}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			_ = resp.Body.Close()

			found := helpers.FindContact(listContacts().Contacts, created.Contact.ID)
			Expect(found).NotTo(BeNil())
			Expect(found.Email).To(Equal("ada+null@example.com"))
		})
	})

	Context("Delete", func() {
		It("should remove the contact so a second delete is 404", func() {
			created := createContact("delete")
			id := strconv.FormatInt(created.Contact.ID, 10)

			resp, err := serverHelper.DeleteContact(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body map[string]string
			Expect(helpers.DecodeBody(resp, &body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("message", "Contact deleted successfully"))

			Expect(helpers.FindContact(listContacts().Contacts, created.Contact.ID)).To(BeNil())

			resp, err = serverHelper.DeleteContact(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			_ = resp.Body.Close()
		})

		It("should treat a non-numeric id as not found", func() {
			resp, err := serverHelper.DeleteContact("abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			_ = resp.Body.Close()
		})
	})
})
