package delivery

// Canned HTML replies for the bot commands.

const WelcomeMessage = `<b>📚 ברוכים הבאים לליקוטי הלכות יומי!</b>

שתי הלכות יומיות מספר ליקוטי הלכות של רבי נתן מברסלב.

<b>פקודות:</b>
/today - 📖 הלכות היום
/about - ℹ️ אודות
/help - ❓ עזרה

<i>` + signature + `</i>`

const AboutMessage = `<b>ℹ️ אודות ליקוטי הלכות יומי</b>

<b>ליקוטי הלכות</b> - ספר יסוד בחסידות ברסלב מאת רבי נתן מברסלב, תלמידו הגדול של רבי נחמן מאומן.

הספר מכיל ביאורים עמוקים על השולחן ערוך לפי תורת רבי נחמן.

<b>קישורים:</b>
📚 <a href="https://www.sefaria.org/Likutei_Halakhot">ספריא</a>

<i>` + signature + `</i>`

const HelpMessage = `<b>❓ עזרה</b>

<b>פקודות זמינות:</b>

/start - התחלה והרשמה
/subscribe - הרשמה לקבלת ההלכות היומיות
/unsubscribe - ביטול ההרשמה
/today - קבלת הלכות היום
/about - מידע על הבוט
/help - הודעה זו

<b>איך זה עובד?</b>
כל יום מתפרסמות שתי הלכות חדשות משני חלקים שונים של ליקוטי הלכות.

<i>` + signature + `</i>`

const ErrorMessage = `<b>😔 שגיאה</b>

אירעה שגיאה. אנא נסו שוב מאוחר יותר.

<i>` + signature + `</i>`

const SubscribedMessage = `✅ נרשמתם בהצלחה! ההלכות היומיות יגיעו לכאן מדי יום.`

const AlreadySubscribedMessage = `ℹ️ אתם כבר רשומים לקבלת ההלכות היומיות.`

const UnsubscribedMessage = `👋 ההרשמה בוטלה. אפשר לחזור בכל עת עם /subscribe.`

const NotSubscribedMessage = `ℹ️ אינכם רשומים כרגע. הרשמה עם /subscribe.`

const UnknownCommandMessage = `🤔 פקודה לא מוכרת. נסו /help.`
